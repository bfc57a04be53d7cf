package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	"github.com/rentflow/rentflow/internal/providers/pdf"
	"go.uber.org/zap"
)

func (s *Server) CreatePayment(c *gin.Context) {
	var req paymentdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	var req paymentdomain.ListPaymentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	resp, err := s.paymentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkPaymentPaid(c *gin.Context) {
	var req paymentdomain.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RefundPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Refund(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PaymentReceipt renders a PDF receipt for a settled payment.
func (s *Server) PaymentReceipt(c *gin.Context) {
	payment, err := s.paymentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment == nil {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}
	if payment.Status != paymentdomain.StatusPaid {
		AbortWithError(c, paymentdomain.ErrInvalidStatus)
		return
	}

	data := pdf.ReceiptData{
		ReceiptNumber: payment.ID,
		Amount:        payment.Amount,
		PaymentType:   payment.Type,
		Method:        payment.Method,
		Reference:     payment.Reference,
		PaidDate:      payment.PaidDate,
		PeriodStart:   payment.PeriodStart,
		PeriodEnd:     payment.PeriodEnd,
	}

	claims, _ := currentClaims(c)
	if org, err := s.organizationSvc.GetByID(c.Request.Context(), claims.OrgID); err == nil && org != nil {
		data.OrgName = org.Name
		data.OrgAddress = org.Address
		data.OrgEmail = org.Email
	}
	if tenant, err := s.tenantSvc.GetByID(c.Request.Context(), payment.TenantID); err == nil && tenant != nil {
		data.TenantName = tenant.FullName
		data.TenantEmail = tenant.Email
	}

	rendered, err := s.pdfProvider.RentReceipt(c.Request.Context(), data)
	if err != nil {
		s.log.Warn("receipt render failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+payment.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", rendered)
}
