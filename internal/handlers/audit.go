package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"mailaudit/internal/audit"
	"mailaudit/internal/emails"
	"mailaudit/internal/models"
)

// Auditor evaluates single emails and whole threads
type Auditor interface {
	EvaluateEmail(ctx context.Context, email models.Email) *models.EmailEvaluation
	AuditThread(ctx context.Context, emails []models.Email, employeeEmail string) (*models.ThreadAuditReport, error)
}

// ReportNotifier delivers finished thread reports
type ReportNotifier interface {
	SendThreadReport(ctx context.Context, recipient string, report *models.ThreadAuditReport) error
}

// UploadAuditResponse lists one report per thread found in the uploaded files
type UploadAuditResponse struct {
	Emails  int                         `json:"emails"`
	Threads int                         `json:"threads"`
	Reports []*models.ThreadAuditReport `json:"reports"`
}

// AuditEmailHandler audits a single email
// @Summary Audit a single email
// @Description Evaluate one email against every active rule
// @Tags audit
// @Accept json
// @Produce json
// @Param request body models.AuditEmailRequest true "Email to audit"
// @Success 200 {object} models.EmailEvaluation
// @Failure 400 {object} models.ErrorResponse
// @Router /api/audit/email [post]
func AuditEmailHandler(auditor Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AuditEmailRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Invalid request body",
				Details: err.Error(),
			})
		}

		if req.Email == nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "Request body must contain an email object.",
			})
		}
		if missing := req.Email.MissingFields(); len(missing) > 0 {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Email is missing required fields",
				Details: strings.Join(missing, ", "),
			})
		}

		evaluation := auditor.EvaluateEmail(c.Request().Context(), *req.Email)
		return c.JSON(http.StatusOK, evaluation)
	}
}

// AuditThreadHandler audits a whole email thread
// @Summary Audit an email thread
// @Description Evaluate every email of a thread in chronological order and summarize the result.
// @Description When notifyEmail is set the report is also emailed to that address.
// @Tags audit
// @Accept json
// @Produce json
// @Param request body models.AuditThreadRequest true "Thread to audit"
// @Success 200 {object} models.ThreadAuditReport
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/audit/thread [post]
func AuditThreadHandler(auditor Auditor, notifier ReportNotifier, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AuditThreadRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Invalid request body",
				Details: err.Error(),
			})
		}

		if len(req.Emails) == 0 {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "Request body must contain a non-empty array of emails.",
			})
		}
		for i, email := range req.Emails {
			if missing := email.MissingFields(); len(missing) > 0 {
				return c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   fmt.Sprintf("Email %d is missing required fields", i+1),
					Details: strings.Join(missing, ", "),
				})
			}
		}

		ctx := c.Request().Context()
		report, err := auditor.AuditThread(ctx, req.Emails, req.EmployeeEmail)
		if err != nil {
			return threadError(c, err)
		}

		if req.NotifyEmail != "" && notifier != nil {
			if err := notifier.SendThreadReport(ctx, req.NotifyEmail, report); err != nil {
				logger.Error().Err(err).
					Str("audit_id", report.AuditID).
					Str("recipient", req.NotifyEmail).
					Msg("Failed to deliver audit report")
			}
		}

		return c.JSON(http.StatusOK, report)
	}
}

// AuditUploadHandler audits uploaded .eml and .mbox files
// @Summary Audit uploaded email files
// @Description Parse .eml and .mbox uploads, group the emails into threads and audit each thread
// @Tags audit
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "One or more .eml or .mbox files"
// @Param employeeEmail formData string false "Employee whose replies are audited"
// @Success 200 {object} UploadAuditResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/audit/upload [post]
func AuditUploadHandler(auditor Auditor, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.MultipartForm()
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Request must be multipart/form-data",
				Details: err.Error(),
			})
		}

		files := form.File["files"]
		if len(files) == 0 {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "Upload at least one .eml or .mbox file in the 'files' field.",
			})
		}

		var parsed []models.Email
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "Failed to read uploaded file",
					Details: err.Error(),
				})
			}
			found, err := emails.ParseFile(fh.Filename, f, logger)
			f.Close()
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "Failed to parse uploaded file",
					Details: err.Error(),
				})
			}
			parsed = append(parsed, found...)
		}

		if len(parsed) == 0 {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "No emails found in the uploaded files.",
			})
		}

		threads := emails.GroupByThread(parsed)
		response := UploadAuditResponse{
			Emails:  len(parsed),
			Threads: len(threads),
			Reports: make([]*models.ThreadAuditReport, 0, len(threads)),
		}

		employee := c.FormValue("employeeEmail")
		for _, thread := range threads {
			report, err := auditor.AuditThread(c.Request().Context(), thread.Emails, employee)
			if err != nil {
				return threadError(c, err)
			}
			response.Reports = append(response.Reports, report)
		}

		logger.Info().
			Int("files", len(files)).
			Int("emails", response.Emails).
			Int("threads", response.Threads).
			Msg("Uploaded files audited")

		return c.JSON(http.StatusOK, response)
	}
}

func threadError(c echo.Context, err error) error {
	if errors.Is(err, audit.ErrEmptyThread) {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Request body must contain a non-empty array of emails.",
		})
	}
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "Failed to audit thread",
		Details: err.Error(),
	})
}
