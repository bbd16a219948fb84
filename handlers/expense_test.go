package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"splitnet/config"
	"splitnet/database"
	"splitnet/ledgerservice"
	"splitnet/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestEnv(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Load()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Group{}, &models.GroupMember{},
		&models.Expense{}, &models.ExpenseSplit{}, &models.Settlement{},
		&models.Activity{}, &models.Invitation{},
		&models.LedgerEvent{}, &models.LedgerSnapshot{}, &models.LedgerSequence{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	database.DB = db
	ledgerservice.Init(db, nil)
}

func createTestUser(t *testing.T, name, email string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, PasswordHash: "x"}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createTestGroupWithMembers(t *testing.T, creator uuid.UUID, members ...uuid.UUID) models.Group {
	t.Helper()
	group := models.Group{Name: "Trip", CreatedBy: creator}
	if err := database.DB.Create(&group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, m := range members {
		database.DB.Create(&models.GroupMember{GroupID: group.ID, UserID: m, Role: "member"})
	}
	database.DB.Create(&models.GroupMember{GroupID: group.ID, UserID: creator, Role: "admin"})
	return group
}

func authedContext(method, path string, body interface{}, userID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set("user_id", userID)
	return c, w
}

func TestCreateExpenseEqualSplitPostsLedgerClaims(t *testing.T) {
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
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	balances, err := groupBalancesView(c, group.ID)
	if err != nil {
		t.Fatalf("groupBalancesView: %v", err)
	}
	if len(balances) != 1 || balances[0].From != member.ID || balances[0].To != payer.ID || balances[0].Amount != 50 {
		t.Fatalf("expected member to owe payer 50, got %+v", balances)
	}
}

func TestCreateExpenseThenSettlementSimplifies(t *testing.T) {
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

	balances, err := groupBalancesView(c, group.ID)
	if err != nil {
		t.Fatalf("groupBalancesView: %v", err)
	}
	if len(balances) != 1 || balances[0].From != member.ID || balances[0].To != payer.ID {
		t.Fatalf("expected member to owe payer, got %+v", balances)
	}
	if balances[0].Amount != 50 {
		t.Fatalf("expected 50 owed, got %v", balances[0].Amount)
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

	balancesAfter, err := groupBalancesView(sc, group.ID)
	if err != nil {
		t.Fatalf("groupBalancesView after settlement: %v", err)
	}
	if len(balancesAfter) != 0 {
		t.Fatalf("expected balances fully settled, got %+v", balancesAfter)
	}

	var simplifiedActivity models.Activity
	if err := database.DB.Where("group_id = ? AND type = ?", group.ID, "debt_simplified").First(&simplifiedActivity).Error; err != nil {
		t.Fatalf("expected a debt_simplified activity to be logged: %v", err)
	}
}
