package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/render"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	rssItems     = 20
	sitemapPosts = 500
)

// SEOHandler serves robots.txt, the sitemap and the RSS feed of the latest posts.
type SEOHandler struct {
	feeds  *services.FeedService
	groups *services.GroupService
	site   config.Site
	log    logging.Logger
}

func NewSEOHandler(feeds *services.FeedService, groups *services.GroupService, site config.Site, log logging.Logger) *SEOHandler {
	return &SEOHandler{feeds: feeds, groups: groups, site: site, log: log}
}

// RobotsTxt (GET /robots.txt)
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

# 后台与账号页面
Disallow: /admin/
Disallow: /auth/
Disallow: /create/
Disallow: /follow/
Disallow: /api/

Sitemap: %s/sitemap.xml
`, h.site.URL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapXML 动态生成 sitemap.xml (GET /sitemap.xml)
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	today := time.Now().UTC().Format("2006-01-02")

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: h.site.URL + "/", LastMod: today, ChangeFreq: "hourly", Priority: "1.0"},
		sitemapURL{Loc: h.site.URL + "/groups/", LastMod: today, ChangeFreq: "weekly", Priority: "0.8"},
	)

	groups, err := h.groups.List(ctx)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	for _, g := range groups {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.site.URL + "/group/" + g.Slug + "/",
			LastMod:    today,
			ChangeFreq: "daily",
			Priority:   "0.7",
		})
	}

	posts, err := h.feeds.Latest(ctx, sitemapPosts)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	for _, p := range posts {
		// 新文章更频繁地被抓取
		age := time.Since(p.PubDate)
		changefreq, priority := "weekly", "0.6"
		switch {
		case age < 7*24*time.Hour:
			changefreq, priority = "daily", "0.8"
		case age < 30*24*time.Hour:
			priority = "0.7"
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.site.URL + detailURL(p.ID),
			LastMod:    p.PubDate.Format("2006-01-02"),
			ChangeFreq: changefreq,
			Priority:   priority,
		})
	}

	h.writeXML(c, "application/xml; charset=utf-8", set)
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description cdata   `xml:"description"`
	Author      string  `xml:"author"`
	Category    string  `xml:"category,omitempty"`
	PubDate     string  `xml:"pubDate"`
	GUID        rssGUID `xml:"guid"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSSFeed 最新文章的 RSS 2.0 (GET /feed.xml)
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	posts, err := h.feeds.Latest(c.Request.Context(), rssItems)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	channel := rssChannel{
		Title:         h.site.Name,
		Link:          h.site.URL + "/",
		Description:   "Latest posts on " + h.site.Name,
		LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
		AtomLink:      atomLink{Href: h.site.URL + "/feed.xml", Rel: "self", Type: "application/rss+xml"},
		Items:         make([]rssItem, 0, len(posts)),
	}
	for _, p := range posts {
		link := h.site.URL + detailURL(p.ID)
		item := rssItem{
			Title:       p.String(),
			Link:        link,
			Description: cdata{Text: string(render.Markdown(p.Text))},
			Author:      p.Author.Username,
			PubDate:     p.PubDate.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: "true", Value: link},
		}
		if p.Group != nil {
			item.Category = p.Group.Title
		}
		channel.Items = append(channel.Items, item)
	}

	h.writeXML(c, "application/rss+xml; charset=utf-8", rssDoc{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: channel,
	})
}

func (h *SEOHandler) writeXML(c *gin.Context, contentType string, v any) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(c, h.log, fmt.Errorf("encode %s: %w", c.Request.URL.Path, err))
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), out...))
}
