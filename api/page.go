package api

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"bluegreen-api/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	blueColor  = "#3490db"
	greenColor = "#2ecc71"
)

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{templates: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

func (r *pageRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type pageData struct {
	Version   string
	Color     template.CSS
	CanCreate bool
	CanList   bool
}

func newPageData(mode domain.Mode) pageData {
	color := greenColor
	if mode.CanCreate() {
		color = blueColor
	}
	return pageData{
		Version:   mode.String(),
		Color:     template.CSS(color),
		CanCreate: mode.CanCreate(),
		CanList:   mode.CanList(),
	}
}

func index(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, "index.html", newPageData(svc.Mode()))
	}
}
