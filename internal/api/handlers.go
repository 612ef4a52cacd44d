package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"xrpl-iou-issuer-go/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mintItem accepts amount as a JSON string or number.
type mintItem struct {
	To     string          `json:"to"`
	Amount json.RawMessage `json:"amount"`
}

func (m mintItem) request() (models.MintRequest, error) {
	value, err := amountText(m.Amount)
	if err != nil {
		return models.MintRequest{}, err
	}
	return models.MintRequest{To: strings.TrimSpace(m.To), Amount: value}, nil
}

// amountText keeps a number's literal digits so no float rounding happens
// before validation.
func amountText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("amount must be a string or a number")
	}
	return n.String(), nil
}

type batchBody struct {
	Items []mintItem `json:"items"`
}

type trustSetBody struct {
	Limit json.RawMessage `json:"limit"`
}

// mintContext detaches a submission from the client connection; the
// validation timeout still bounds it.
func mintContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":                   true,
		"issuer":               s.issuer.Issuer(),
		"currency":             s.issuer.Currency(),
		"endpoint":             s.ledger.Endpoint(),
		"connected":            s.ledger.IsConnected(),
		"walletSigningEnabled": s.signer.Enabled(),
	})
}

func (s *Server) handleCheckTrustline(c *gin.Context) {
	to := strings.TrimSpace(c.Query("to"))
	line, err := s.issuer.CheckTrustline(c.Request.Context(), to)
	if err != nil {
		s.okError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "hasTrustline": line != nil, "line": line})
}

func (s *Server) handleMintSingle(c *gin.Context) {
	var body mintItem
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}
	req, err := body.request()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	receipt, err := s.issuer.MintSingle(mintContext(c), req)
	if err != nil {
		s.mintError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "hash": receipt.Hash, "ledgerIndex": receipt.LedgerIndex})
}

func (s *Server) handleMintBatch(c *gin.Context) {
	var body batchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}

	items := make([]models.MintRequest, len(body.Items))
	for i, item := range body.Items {
		req, err := item.request()
		if err != nil {
			// left for validation to reject with the item's index
			req = models.MintRequest{To: item.To, Amount: string(item.Amount)}
		}
		items[i] = req
	}

	result, err := s.issuer.MintBatch(mintContext(c), items)
	if err != nil {
		s.mintError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMints(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "mint history is not available"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	records, err := s.store.GetMintHistory(c.Request.Context(), strings.TrimSpace(c.Query("to")), limit, offset)
	if err != nil {
		s.okError(c, err)
		return
	}
	if records == nil {
		records = []models.MintRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mints": records})
}

func (s *Server) handleTrustSetPayload(c *gin.Context) {
	var body trustSetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid JSON body"})
		return
	}
	limit, err := amountText(body.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	tx, err := s.issuer.TrustSetTemplate(limit)
	if err != nil {
		s.okError(c, err)
		return
	}
	ref, err := s.signer.CreatePayload(c.Request.Context(), tx)
	if err != nil {
		s.okError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "uuid": ref.UUID, "link": ref.Link, "qr": ref.QR})
}

func (s *Server) handleTrustSetStatus(c *gin.Context) {
	uuid := strings.TrimSpace(c.Query("uuid"))
	if uuid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "uuid is required"})
		return
	}
	status, err := s.signer.GetPayloadStatus(c.Request.Context(), uuid)
	if err != nil {
		s.okError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"signed":  status.Signed,
		"expired": status.Expired,
		"account": status.Account,
		"txid":    status.TxID,
	})
}

func (s *Server) okError(c *gin.Context, err error) {
	status := statusFor(err)
	logFailure(c, status, err)
	c.JSON(status, gin.H{"ok": false, "message": messageFor(status, err)})
}

func (s *Server) mintError(c *gin.Context, err error) {
	status := statusFor(err)
	logFailure(c, status, err)
	body := gin.H{"status": "error", "message": messageFor(status, err)}
	if hash := hashOf(err); hash != "" {
		body["hash"] = hash
	}
	c.JSON(status, body)
}

func logFailure(c *gin.Context, status int, err error) {
	if status < http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		zap.L().Info("Request rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
		return
	}
	zap.L().Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
}
