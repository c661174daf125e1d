package user

// Principal identifies the authenticated caller of a request. It is produced
// by the account service introspection client and carried on the request
// context; the core never resolves identity on its own.
type Principal struct {
	UserID string
	Email  string
}
