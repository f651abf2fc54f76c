package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
)

type createServiceRequest struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type updateServiceRequest struct {
	Name  *string `json:"name"`
	Price *string `json:"price"`
}

func (s *Server) ListServices(c *gin.Context) {
	items, err := s.catalogSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]serviceView, 0, len(items))
	for _, item := range items {
		views = append(views, newServiceView(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) GetServiceByID(c *gin.Context) {
	item, err := s.catalogSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newServiceView(*item)})
}

func (s *Server) CreateService(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidPrice)
		return
	}

	item, err := s.catalogSvc.Create(c.Request.Context(), principalFrom(c), catalogdomain.CreateRequest{
		Code:  req.Code,
		Name:  req.Name,
		Price: price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newServiceView(*item)})
}

func (s *Server) UpdateService(c *gin.Context) {
	var req updateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := catalogdomain.UpdateRequest{Name: req.Name}
	if req.Price != nil {
		price, err := parseAmount(*req.Price)
		if err != nil {
			AbortWithError(c, catalogdomain.ErrInvalidPrice)
			return
		}
		update.Price = &price
	}

	item, err := s.catalogSvc.Update(c.Request.Context(), principalFrom(c), c.Param("id"), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newServiceView(*item)})
}

func (s *Server) DeleteService(c *gin.Context) {
	if err := s.catalogSvc.Delete(c.Request.Context(), principalFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
