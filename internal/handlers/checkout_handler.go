package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
	"github.com/imrishuroy/go-listing-checkout/internal/payment"
	"github.com/imrishuroy/go-listing-checkout/internal/process"
	"github.com/imrishuroy/go-listing-checkout/internal/telemetry"
	"github.com/imrishuroy/go-listing-checkout/internal/validation"
)

// FlashCookie carries a one-shot message to the page a rejected request
// is redirected to.
const FlashCookie = "flash"

// invalidParamsMsg is the errorMsg programmatic callers get for input that
// cannot be read.
const invalidParamsMsg = "Some of the submitted values are invalid."

// Checkout is the two-step initiation flow.
type Checkout interface {
	Preview(ctx context.Context, in checkout.PreviewInput) (*checkout.PreviewView, error)
	Commit(ctx context.Context, in checkout.CommitInput) (*checkout.CommitResult, error)
}

// ProcessStatusQuery reads the outcome of async preauths.
type ProcessStatusQuery interface {
	ProcessStatus(ctx context.Context, token string) (*payment.Status, error)
}

// HandlerConfig groups dependencies for the checkout routes.
type HandlerConfig struct {
	Checkout    Checkout
	Communities CommunityQuery
	Processes   ProcessStatusQuery
	Metrics     *telemetry.ServerMetrics
	Logger      *slog.Logger

	CommitsPerMinute int
	CommitBurst      int
}

type checkoutHandler struct {
	cfg    HandlerConfig
	logger *slog.Logger
}

// RegisterCheckoutRoutes registers the initiate, initiated and op_status routes.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &checkoutHandler{cfg: cfg, logger: logger.With(slog.String("component", "handlers"))}
	v := validation.New()

	listings := r.Group("/listings/:listing_id", RequireActor(cfg.Communities, h.logger))
	listings.GET("/initiate", h.preview(v))
	listings.POST("/initiated", RateLimit(cfg.CommitsPerMinute, cfg.CommitBurst), h.commit(v))

	r.GET("/transactions/op_status/:process_token", RequireActor(cfg.Communities, h.logger), h.opStatus)
}

func (h *checkoutHandler) preview(v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form validation.CheckoutForm
		if err := validation.BindAndValidate(c, &form, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}
		actor := actorFrom(c)

		view, err := h.cfg.Checkout.Preview(c.Request.Context(), checkout.PreviewInput{
			ListingID: c.Param("listing_id"),
			Community: actor.Community,
			BuyerID:   actor.UserID,
			Params:    form.Params(),
		})
		if err != nil {
			h.fail(c, "preview", err, false)
			return
		}

		h.cfg.Metrics.Outcome("preview", "ok")
		c.JSON(http.StatusOK, view)
	}
}

func (h *checkoutHandler) commit(v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		programmatic := isProgrammatic(c.Request)
		var extra []gin.H
		if programmatic {
			extra = append(extra, gin.H{"errorMsg": invalidParamsMsg})
		}
		var form validation.CheckoutForm
		if err := validation.BindAndValidate(c, &form, v, extra...); err != nil {
			return
		}
		actor := actorFrom(c)

		res, err := h.cfg.Checkout.Commit(c.Request.Context(), checkout.CommitInput{
			ListingID:      c.Param("listing_id"),
			Community:      actor.Community,
			BuyerID:        actor.UserID,
			Params:         form.Params(),
			IdempotencyKey: c.GetHeader("Idempotency-Key"),
		})
		if err != nil {
			h.fail(c, "commit", err, programmatic)
			return
		}

		if res.RedirectURL != "" {
			h.cfg.Metrics.Outcome("commit", "redirect")
			if programmatic {
				c.JSON(http.StatusOK, gin.H{"redirectUrl": res.RedirectURL})
				return
			}
			c.Redirect(http.StatusSeeOther, res.RedirectURL)
			return
		}

		h.cfg.Metrics.Outcome("commit", "op_status")
		if programmatic {
			c.JSON(http.StatusOK, gin.H{"opStatusUrl": res.OpStatusURL, "opErrorMsg": res.OpErrorMsg})
			return
		}
		c.Redirect(http.StatusSeeOther, res.OpStatusURL)
	}
}

func (h *checkoutHandler) opStatus(c *gin.Context) {
	st, err := h.cfg.Processes.ProcessStatus(c.Request.Context(), c.Param("process_token"))
	if err != nil && !errors.Is(err, process.ErrNotFound) {
		h.logError(c, "op status", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	// someone else's process looks the same as an unknown one
	actor := actorFrom(c)
	if err != nil || st.StarterID != actor.UserID || st.CommunityID != actor.Community.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "process_not_found"})
		return
	}

	body := gin.H{"completed": st.Completed}
	switch {
	case st.Failed:
		body["errorMsg"] = checkout.MustMessage(checkout.CodePaymentGatewayGenericError)
	case st.Completed:
		body["redirectUrl"] = st.RedirectURL
	}
	c.JSON(http.StatusOK, body)
}

// fail turns a checkout error into a response. Rejections and
// infrastructure failures become a JSON error for programmatic callers or a
// redirect with a flash message for browsers.
func (h *checkoutHandler) fail(c *gin.Context, step string, err error, programmatic bool) {
	var rej *checkout.Rejection
	var perr *checkout.ParamError
	switch {
	case errors.As(err, &rej):
		h.cfg.Metrics.Outcome(step, string(rej.Code))
		if programmatic {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errorMsg": rej.Message})
			return
		}
		setFlash(c, rej.Message)
		c.Redirect(redirectStatus(c.Request), rejectionURL(rej))

	case errors.As(err, &perr):
		h.cfg.Metrics.Outcome(step, "invalid_params")
		body := gin.H{
			"error":  "invalid_request_params",
			"fields": map[string]string{perr.Field: perr.Err.Error()},
		}
		if programmatic {
			body["errorMsg"] = invalidParamsMsg
		}
		c.JSON(http.StatusBadRequest, body)

	default:
		h.cfg.Metrics.Outcome(step, "error")
		h.logError(c, step, err)
		msg := checkout.MustMessage(checkout.CodePaymentGatewayGenericError)
		if programmatic {
			c.JSON(http.StatusInternalServerError, gin.H{"errorMsg": msg})
			return
		}
		setFlash(c, msg)
		c.Redirect(redirectStatus(c.Request), "/listings/"+url.PathEscape(c.Param("listing_id")))
	}
}

func (h *checkoutHandler) logError(c *gin.Context, msg string, err error) {
	h.logger.ErrorContext(c.Request.Context(), msg,
		slog.String("listing_id", c.Param("listing_id")),
		slog.String("request_id", c.GetString(ctxRequestID)),
		slog.String("error", err.Error()),
	)
}

// rejectionURL is the page a rejected request is sent back to.
func rejectionURL(rej *checkout.Rejection) string {
	switch rej.Target {
	case checkout.TargetHome:
		return "/"
	case checkout.TargetPreview:
		u := "/listings/" + url.PathEscape(rej.ListingID) + "/initiate"
		if len(rej.Params) > 0 {
			u += "?" + rej.Params.Encode()
		}
		return u
	default:
		return "/listings/" + url.PathEscape(rej.ListingID)
	}
}

func setFlash(c *gin.Context, msg string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, url.QueryEscape(msg), 60, "/", "", false, true)
}

func redirectStatus(r *http.Request) int {
	if r.Method == http.MethodGet {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// isProgrammatic reports whether the caller wants JSON instead of redirects.
func isProgrammatic(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
