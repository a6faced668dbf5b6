package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hazard-map/internal/repository"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Default map center (Moscow) for users who have not set one yet.
const (
	defaultCenterLat = 55.751244
	defaultCenterLon = 37.618423
)

// Server renders the per-user map page. It only reads: the map center from
// the identity store and the full marker set from the marker store.
type Server struct {
	userRepo   *repository.UserRepository
	markerRepo *repository.MarkerRepository
}

func NewServer(userRepo *repository.UserRepository, markerRepo *repository.MarkerRepository) *Server {
	return &Server{userRepo: userRepo, markerRepo: markerRepo}
}

// Router builds the gin engine serving GET /<telegram_id>.html.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.GET("/:page", s.userMap)
	return r
}

func (s *Server) userMap(c *gin.Context) {
	page := c.Param("page")
	if !strings.HasSuffix(page, ".html") {
		c.String(http.StatusNotFound, "Страница не найдена")
		return
	}

	telegramID, err := strconv.ParseInt(strings.TrimSuffix(page, ".html"), 10, 64)
	if err != nil {
		c.String(http.StatusNotFound, "Страница не найдена")
		return
	}

	user, err := s.userRepo.FindByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.String(http.StatusNotFound, "Пользователь не найден")
			return
		}
		c.String(http.StatusInternalServerError, "Ошибка сервера")
		return
	}

	markers, err := s.markerRepo.ListAll(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "Ошибка сервера")
		return
	}

	centerLat, centerLon := defaultCenterLat, defaultCenterLon
	if user.HasMapCenter() {
		centerLat = *user.MapCenterLat
		centerLon = *user.MapCenterLon
	}

	c.HTML(http.StatusOK, "map.html", gin.H{
		"CenterLat": centerLat,
		"CenterLon": centerLon,
		"Markers":   markers,
	})
}
