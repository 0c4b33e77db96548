package http

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"corebank-go/internal/loans"
)

// POST /v1/loans
func (s *Server) applyLoan(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "failed to read body"})
		return
	}

	res, err := s.loanSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid_request", "message": "body must be JSON"})
		return
	}
	if !res.Valid() {
		d := []string{}
		for _, e := range res.Errors() {
			d = append(d, e.String())
		}
		c.JSON(422, gin.H{"error": "schema_invalid", "details": d})
		return
	}

	var input struct {
		Type         string  `json:"type"`
		Principal    float64 `json:"principal"`
		InterestRate float64 `json:"interest_rate"`
		TenureMonths int     `json:"tenure_months"`
		Collateral   string  `json:"collateral"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	loan, err := s.loans.Apply(c.Request.Context(), userID, loans.ApplyInput{
		Type:         input.Type,
		Principal:    input.Principal,
		InterestRate: input.InterestRate,
		TenureMonths: input.TenureMonths,
		Collateral:   input.Collateral,
	})
	if err != nil {
		abortWithDomainError(c, err)
		return
	}

	c.JSON(201, loan)
}

// GET /v1/loans
func (s *Server) listLoans(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	list, err := s.loans.List(c.Request.Context(), userID)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(200, list)
}

// GET /v1/loans/:id
func (s *Server) getLoan(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	loan, err := s.loans.Get(c.Request.Context(), userID, uint(id))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(200, loan)
}

// POST /v1/loans/:id/emi
func (s *Server) payEmi(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	loan, err := s.loans.PayEMI(c.Request.Context(), userID, uint(id))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(200, loan)
}

// POST /v1/loans/:id/preclose
func (s *Server) precloseLoan(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	loan, totalPayable, penalty, err := s.loans.PreClose(c.Request.Context(), userID, uint(id))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"loan":          loan,
		"total_payable": totalPayable,
		"penalty":       penalty,
	})
}
