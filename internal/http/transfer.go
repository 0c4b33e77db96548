package http

import (
	"github.com/gin-gonic/gin"

	"corebank-go/internal/transfer"
)

// POST /v1/transfers
func (s *Server) transferMoney(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var input struct {
		FromAccount string  `json:"from_account"`
		ToAccount   string  `json:"to_account"`
		Amount      float64 `json:"amount"`
		PIN         string  `json:"pin"`
		Note        string  `json:"note"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	res, err := s.transfers.Transfer(c.Request.Context(), userID, transfer.Input{
		FromAccount: input.FromAccount,
		ToAccount:   input.ToAccount,
		Amount:      input.Amount,
		PIN:         input.PIN,
		Note:        input.Note,
	})
	if err != nil {
		abortWithDomainError(c, err)
		return
	}

	c.JSON(200, res)
}
