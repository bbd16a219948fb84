package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"splitnet/models"

	"github.com/gin-gonic/gin"
)

func TestRemoveMemberBlockedByOutstandingBalance(t *testing.T) {
	setupTestEnv(t)

	payer := createTestUser(t, "Alice", "alice@example.com")
	member := createTestUser(t, "Bob", "bob@example.com")
	group := createTestGroupWithMembers(t, payer.ID, member.ID)

	c, w := authedContext(http.MethodPost, fmt.Sprintf("/api/groups/%s/expenses", group.ID), models.CreateExpenseRequest{
		Description: "Dinner",
		Amount:      100,
		SplitType:   "equal",
	}, payer.ID)
	c.Params = gin.Params{{Key: "id", Value: group.ID.String()}}
	CreateExpense(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating expense, got %d: %s", w.Code, w.Body.String())
	}

	rc, rw := authedContext(http.MethodDelete, fmt.Sprintf("/api/groups/%s/members/%s", group.ID, member.ID), nil, payer.ID)
	rc.Params = gin.Params{{Key: "id", Value: group.ID.String()}, {Key: "uid", Value: member.ID.String()}}
	RemoveMember(rc)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected removal to be blocked by outstanding balance, got %d: %s", rw.Code, rw.Body.String())
	}

	sc, sw := authedContext(http.MethodPost, fmt.Sprintf("/api/groups/%s/settle", group.ID), models.CreateSettlementRequest{
		PaidTo: payer.ID.String(),
		Amount: 50,
	}, member.ID)
	sc.Params = gin.Params{{Key: "id", Value: group.ID.String()}}
	CreateSettlement(sc)
	if sw.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating settlement, got %d: %s", sw.Code, sw.Body.String())
	}

	rc2, rw2 := authedContext(http.MethodDelete, fmt.Sprintf("/api/groups/%s/members/%s", group.ID, member.ID), nil, payer.ID)
	rc2.Params = gin.Params{{Key: "id", Value: group.ID.String()}, {Key: "uid", Value: member.ID.String()}}
	RemoveMember(rc2)
	if rw2.Code != http.StatusOK {
		t.Fatalf("expected removal to succeed once settled, got %d: %s", rw2.Code, rw2.Body.String())
	}
}
