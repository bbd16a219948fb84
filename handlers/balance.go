package handlers

import (
	"net/http"
	"splitnet/config"
	"splitnet/database"
	"splitnet/ledgerservice"
	"splitnet/models"
	"splitnet/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/groups/:id/balances
func GetGroupBalances(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !isMember(groupID, userID) {
		utils.Unauthorized(c, "You are not a member of this group")
		return
	}

	var group models.Group
	database.DB.First(&group, groupID)

	balances, err := groupBalancesView(c, groupID)
	if err != nil {
		utils.InternalError(c, "Failed to load balances")
		return
	}

	var totalSpent float64
	database.DB.Model(&models.Expense{}).Where("group_id = ?", groupID).Select("COALESCE(SUM(amount), 0)").Scan(&totalSpent)

	summary := models.GroupBalanceSummary{
		GroupID:    groupID,
		GroupName:  group.Name,
		Balances:   balances,
		TotalSpent: totalSpent,
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// GET /api/balances — overall balances across all groups for current user
func GetOverallBalances(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.GroupMember
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	friendBalances := make(map[uuid.UUID]float64)

	for _, m := range memberships {
		balances, err := groupBalancesView(c, m.GroupID)
		if err != nil {
			continue
		}

		for _, b := range balances {
			if b.From == userID {
				friendBalances[b.To] -= b.Amount
			} else if b.To == userID {
				friendBalances[b.From] += b.Amount
			}
		}
	}

	var totalOwed, totalOwing float64
	var friends []models.FriendBalance

	for friendID, amount := range friendBalances {
		if utils.RoundToTwo(amount) == 0 {
			continue
		}

		var user models.User
		database.DB.First(&user, friendID)

		friends = append(friends, models.FriendBalance{
			UserID:    friendID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
			Amount:    utils.RoundToTwo(amount),
			Currency:  "INR",
		})

		if amount > 0 {
			totalOwed += amount
		} else {
			totalOwing += -amount
		}
	}

	summary := models.OverallBalanceSummary{
		TotalOwed:  utils.RoundToTwo(totalOwed),
		TotalOwing: utils.RoundToTwo(totalOwing),
		Friends:    friends,
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// groupBalancesView reads the group's netted pairwise claims straight out
// of ledgerservice.Default.Balances (a thin view over ledger.GetCreditors())
// and converts each nonzero claim into a display Balance. This replaces
// the teacher's SQL-recomputed calculateNetBalances/simplifyDebts pass:
// the ledger already keeps the simplified, minor-unit balance current as
// of the last Add, so a read is just a format conversion.
func groupBalancesView(c *gin.Context, groupID uuid.UUID) ([]models.Balance, error) {
	creditors, err := ledgerservice.Default.Balances(c.Request.Context(), groupID)
	if err != nil {
		return nil, err
	}

	scale := config.AppConfig.LedgerMinorUnitScale
	var balances []models.Balance
	for creditorParticipant, debtors := range creditors {
		creditorID, err := uuid.Parse(string(creditorParticipant))
		if err != nil {
			continue
		}
		for debtorParticipant, rec := range debtors {
			if rec.Owes <= 0 {
				continue
			}
			debtorID, err := uuid.Parse(string(debtorParticipant))
			if err != nil {
				continue
			}

			var fromUser, toUser models.User
			database.DB.First(&fromUser, debtorID)
			database.DB.First(&toUser, creditorID)

			balances = append(balances, models.Balance{
				From:     debtorID,
				FromName: fromUser.Name,
				To:       creditorID,
				ToName:   toUser.Name,
				Amount:   ledgerservice.FromMinorUnits(rec.Owes, scale),
				Currency: "INR",
			})
		}
	}

	return balances, nil
}
