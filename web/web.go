// Package web embeds the HTML templates and builds the gin renderer.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"time"

	"inkwell/internal/render"

	"github.com/gin-contrib/multitemplate"
)

//go:embed templates
var files embed.FS

// Pages lists every view the handlers render, keyed by the name handlers pass to c.HTML.
var Pages = []string{
	"posts/index.html",
	"posts/group_list.html",
	"posts/groups.html",
	"posts/profile.html",
	"posts/post_detail.html",
	"posts/create_post.html",
	"posts/follow.html",
	"users/signup.html",
	"users/login.html",
	"users/notifications.html",
	"core/404.html",
	"core/403.html",
	"core/500.html",
}

// Funcs returns the template helpers. mediaURL maps a stored image key to a URL.
func Funcs(siteName string, mediaURL func(string) string) template.FuncMap {
	return template.FuncMap{
		"siteName": func() string { return siteName },
		"mediaURL": mediaURL,
		"markdown": render.Markdown,
		"truncate": render.Truncate,
		"add": func(a, b int) int {
			return a + b
		},
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("2 January 2006 15:04")
		},
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
	}
}

// LoadTemplates assembles each page from the base layout, the shared includes and its view.
func LoadTemplates(funcs template.FuncMap) (multitemplate.Renderer, error) {
	layout, err := fs.ReadFile(files, "templates/layouts/base.html")
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	includeNames, err := fs.Glob(files, "templates/includes/*.html")
	if err != nil {
		return nil, err
	}
	sort.Strings(includeNames)
	includes := make([]string, 0, len(includeNames))
	for _, name := range includeNames {
		b, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		includes = append(includes, string(b))
	}

	r := multitemplate.NewRenderer()
	for _, page := range Pages {
		view, err := fs.ReadFile(files, path.Join("templates/views", page))
		if err != nil {
			return nil, fmt.Errorf("read view %s: %w", page, err)
		}
		parts := append([]string{string(layout)}, includes...)
		parts = append(parts, string(view))
		r.AddFromStringsFuncs(page, funcs, parts...)
	}
	return r, nil
}
