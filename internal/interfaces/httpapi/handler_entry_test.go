package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
)

func TestWriteRuleViolations_ListsEveryRule(t *testing.T) {
	rec := httptest.NewRecorder()
	writeRuleViolations(context.Background(), rec, []fantasy.Violation{
		{Rule: fantasy.RuleSquadSize, Message: "squad must contain exactly 8 distinct players"},
		{Rule: fantasy.RuleBudget, Message: "squad cost exceeds the budget cap"},
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body struct {
		APIVersion string `json:"apiVersion"`
		Error      struct {
			Code   int    `json:"code"`
			Status string `json:"status"`
			Errors []struct {
				Domain  string `json:"domain"`
				Reason  string `json:"reason"`
				Message string `json:"message"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if body.Error.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected error code 422, got %d", body.Error.Code)
	}
	if len(body.Error.Errors) != 2 {
		t.Fatalf("expected 2 error items, got %d", len(body.Error.Errors))
	}
	if body.Error.Errors[0].Reason != fantasy.RuleSquadSize {
		t.Fatalf("expected first reason %q, got %q", fantasy.RuleSquadSize, body.Error.Errors[0].Reason)
	}
	if body.Error.Errors[1].Reason != fantasy.RuleBudget {
		t.Fatalf("expected second reason %q, got %q", fantasy.RuleBudget, body.Error.Errors[1].Reason)
	}
	for _, item := range body.Error.Errors {
		if item.Domain != errorDomain {
			t.Fatalf("expected domain %q, got %q", errorDomain, item.Domain)
		}
	}
}

func TestParseBlockNumber_RejectsNonPositive(t *testing.T) {
	for _, raw := range []string{"0", "-3", "abc", ""} {
		req := httptest.NewRequest(http.MethodGet, "/v1/blocks/x", nil)
		req.SetPathValue("blockNumber", raw)
		if _, err := parseBlockNumber(req); err == nil {
			t.Fatalf("expected error for block number %q", raw)
		}
	}
}

func TestParseBlockNumber_AcceptsPositive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/blocks/7", nil)
	req.SetPathValue("blockNumber", "7")
	number, err := parseBlockNumber(req)
	if err != nil {
		t.Fatalf("parse block number: %v", err)
	}
	if number != 7 {
		t.Fatalf("expected 7, got %d", number)
	}
}
