package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogLoginAttempt(_ context.Context, userID kernel.UserID, email string, success bool, ip string, userAgent string) {
	entry := logx.WithFields(logx.Fields{
		"audit_event": "login_attempt",
		"user_id":     userID,
		"email":       email,
		"success":     success,
		"ip":          ip,
		"user_agent":  userAgent,
		"timestamp":   time.Now(),
	})
	if success {
		entry.Info("Audit: login attempt")
		return
	}
	entry.Warn("Audit: login attempt")
}

func (s *LogxAuditService) LogLogout(_ context.Context, userID kernel.UserID, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "logout",
		"user_id":     userID,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: logout")
}

func (s *LogxAuditService) LogAccountCreated(_ context.Context, userID kernel.UserID, role kernel.Role, method string) {
	logx.WithFields(logx.Fields{
		"audit_event": "account_created",
		"user_id":     userID,
		"role":        role,
		"method":      method,
		"timestamp":   time.Now(),
	}).Info("Audit: account created")
}
