package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"shibads/internal/domain"
	"shibads/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// InternalKeyHeader carries the shared key for the "commission" request type.
const InternalKeyHeader = "X-Internal-Key"

// API is the single request router. The "type" field selects the operation.
func (h *Handler) API(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		fail(c, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}

	var req apiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if req.Type == "" {
		fail(c, http.StatusBadRequest, `Missing "type" field in the request body.`)
		return
	}

	if req.Type == "commission" {
		h.commission(c, &req)
		return
	}

	tgUser, err := h.Verifier.Verify(req.InitData)
	if err != nil {
		h.log.Debug("initData rejected", "type", req.Type, "error", err)
		fail(c, http.StatusUnauthorized, "Invalid or expired initData. Security check failed.")
		return
	}
	if !req.UserID.Set || req.UserID.Value <= 0 {
		fail(c, http.StatusBadRequest, "Missing user_id in the request body.")
		return
	}
	if tgUser.ID != req.UserID.Value {
		fail(c, http.StatusUnauthorized, "initData does not belong to user_id.")
		return
	}

	userID := req.UserID.Value
	ctx := c.Request.Context()

	switch req.Type {
	case "register":
		if err := h.Users.Register(ctx, userID, req.RefBy.ptr()); err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, gin.H{"message": "Registration successful."})

	case "getUserData":
		data, err := h.Users.GetUserData(ctx, userID)
		if errors.Is(err, service.ErrUserNotFound) {
			ok(c, gin.H{"needs_registration": true})
			return
		}
		if err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, data)

	case "requestActionId":
		kind, valid := domain.ParseActionKind(req.ActionType)
		if !valid {
			fail(c, http.StatusBadRequest, "Invalid action type requested.")
			return
		}
		token, err := h.Tokens.Issue(ctx, userID, kind)
		if err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, gin.H{"action_id": token})

	case "watchAd":
		res, err := h.Ledger.WatchAd(ctx, userID, req.ActionID)
		if err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, res)

	case "preSpin":
		if err := h.Ledger.PreSpin(ctx, userID, req.ActionID); err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, gin.H{"message": "Pre-spin successful. Ready for ad."})

	case "spinResult":
		res, err := h.Ledger.SpinResult(ctx, userID, req.ActionID)
		if err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, res)

	case "completeTask":
		missionID := domain.LegacyMissionID
		if req.MissionID.Set {
			missionID = int(req.MissionID.Value)
		}
		res, err := h.Ledger.CompleteMission(ctx, userID, req.ActionID, missionID)
		if err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, res)

	case "withdraw":
		res, err := h.Ledger.Withdraw(ctx, userID, req.ActionID, string(req.Amount), req.BinanceID)
		if err != nil {
			h.failErr(c, req.Type, userID, err)
			return
		}
		ok(c, res)

	default:
		fail(c, http.StatusBadRequest, "Invalid API request type.")
	}
}

// commission credits a referrer synchronously. It is meant for internal
// callers and always answers 200 once authorised.
func (h *Handler) commission(c *gin.Context, req *apiRequest) {
	if h.CommissionKey == "" {
		fail(c, http.StatusForbidden, "Commission endpoint is disabled.")
		return
	}
	key := c.GetHeader(InternalKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.CommissionKey)) != 1 {
		fail(c, http.StatusUnauthorized, "Invalid internal key.")
		return
	}

	source, err := decimal.NewFromString(string(req.SourceReward))
	if err != nil || !req.ReferrerID.Set || !req.RefereeID.Set {
		ok(c, gin.H{"message": "Commission skipped.", "error": "invalid commission parameters"})
		return
	}

	res, err := h.Commissions.Credit(c.Request.Context(), req.ReferrerID.Value, req.RefereeID.Value, source)
	if err != nil {
		h.log.Error("commission failed", "referrer_id", req.ReferrerID.Value, "referee_id", req.RefereeID.Value, "error", err)
		ok(c, gin.H{"message": "Commission skipped.", "error": "internal error"})
		return
	}
	if !res.Credited {
		ok(c, gin.H{"message": "Commission skipped.", "error": res.Reason})
		return
	}
	ok(c, gin.H{"message": "Commission processed.", "amount": res.Amount})
}
