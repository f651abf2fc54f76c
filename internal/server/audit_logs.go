package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
)

// listPage is the envelope every paginated list endpoint answers with.
func listPage(data any, info pagination.PageInfo) gin.H {
	return gin.H{"data": data, "page_info": info}
}

// ListAuditLogs is admin only. The service enforces the role.
func (s *Server) ListAuditLogs(c *gin.Context) {
	var filter auditdomain.ListAuditLogRequest
	if c.ShouldBindQuery(&filter) != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := s.auditSvc.List(c.Request.Context(), principalFrom(c), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listPage(page.AuditLogs, page.PageInfo))
}
