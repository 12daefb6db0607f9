package httpapi

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	staticRoutePath = "/static"
	imageRoutePath  = "/img"
	staticRootDir   = "static"
	imageRootDir    = "static/img"
)

//go:embed templates/layout.tmpl
var layoutTemplateHTML string

//go:embed templates/login.tmpl
var loginTemplateHTML string

//go:embed templates/hub.tmpl
var hubTemplateHTML string

//go:embed templates/list.tmpl
var listTemplateHTML string

//go:embed templates/record_form.tmpl
var recordFormTemplateHTML string

//go:embed templates/details.tmpl
var detailsTemplateHTML string

//go:embed templates/delete.tmpl
var deleteTemplateHTML string

//go:embed templates/upload.tmpl
var uploadTemplateHTML string

//go:embed static
var staticAssets embed.FS

// RegisterStaticAssets serves the stylesheet and script under /static and the images under /img.
func RegisterStaticAssets(router gin.IRouter) {
	router.StaticFS(staticRoutePath, http.FS(mustSub(staticRootDir)))
	router.StaticFS(imageRoutePath, http.FS(mustSub(imageRootDir)))
}

func mustSub(dir string) fs.FS {
	sub, subErr := fs.Sub(staticAssets, dir)
	if subErr != nil {
		panic(subErr)
	}
	return sub
}
