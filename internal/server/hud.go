package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	huddomain "github.com/smallbiznis/memberhud/internal/hud/domain"
	"github.com/smallbiznis/memberhud/pkg/db/pagination"
)

func (s *Server) GetDashboard(c *gin.Context) {
	var query struct {
		Period string `form:"period"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.hudSvc.GetDashboard(c.Request.Context(), c.Param("slug"), query.Period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCohorts(c *gin.Context) {
	resp, err := s.hudSvc.ListCohorts(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMonthly(c *gin.Context) {
	resp, err := s.hudSvc.ListMonthly(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMembers(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.hudSvc.ListMembers(c.Request.Context(), huddomain.ListMembersRequest{
		Community:  c.Param("slug"),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Members,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetDistributions(c *gin.Context) {
	resp, err := s.hudSvc.GetDistributions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSyncRuns(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	size := 0
	if limit != nil {
		size = *limit
	}
	resp, err := s.hudSvc.ListSyncRuns(c.Request.Context(), c.Param("slug"), size)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// TriggerSync runs one sync inline and returns the recorded run.
func (s *Server) TriggerSync(c *gin.Context) {
	run, err := s.hudSvc.Sync(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}
