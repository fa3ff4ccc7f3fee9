package usecase

import (
	"regexp"
	"strings"
)

// imageRewrite maps a thumbnail URL of one image host to its full-size URL
type imageRewrite struct {
	host    string
	rewrite func(string) string
}

var (
	dimensionSuffixRegex = regexp.MustCompile(`-\d+x\d+(\.[a-zA-Z0-9]+(?:[?#].*)?)$`)
	dimensionTailRegex   = regexp.MustCompile(`-\d+x\d+$`)
	smallSuffixRegex     = regexp.MustCompile(`_small(\.[a-zA-Z0-9]+(?:[?#].*)?)$`)
)

// imageRewrites is checked in order, the first host contained in the URL wins
var imageRewrites = []imageRewrite{
	{host: "cdn.modulus.co.il", rewrite: stripQuery},
	{host: "www.gag-lachayot.co.il", rewrite: func(u string) string {
		u = dimensionSuffixRegex.ReplaceAllString(u, "$1")
		return dimensionTailRegex.ReplaceAllString(u, "")
	}},
	{host: "www.all4pet.co.il", rewrite: func(u string) string {
		u = smallSuffixRegex.ReplaceAllString(u, "$1")
		return strings.TrimSuffix(u, "_small")
	}},
	{host: "d3m9l0v76dty0.cloudfront.net", rewrite: func(u string) string {
		for _, segment := range []string{"/show/", "/index/", "/large/"} {
			if strings.Contains(u, segment) {
				return strings.Replace(u, segment, "/extra_large/", 1)
			}
		}
		return u
	}},
	{host: "just4pet.co.il", rewrite: stripThumbnailPrefix},
}

// FullSizeImageURL derives the full-size image URL of a catalog thumbnail.
// URLs of unknown hosts are returned unchanged.
func FullSizeImageURL(thumbnail string) string {
	if thumbnail == "" {
		return ""
	}
	for _, r := range imageRewrites {
		if strings.Contains(thumbnail, r.host) {
			return r.rewrite(thumbnail)
		}
	}
	return thumbnail
}

func stripQuery(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}

// stripThumbnailPrefix drops the tn_ prefix of the file name, keeping the query
func stripThumbnailPrefix(u string) string {
	slash := strings.LastIndex(u, "/")
	dir, file := u[:slash+1], u[slash+1:]

	name, query, hasQuery := strings.Cut(file, "?")
	if !strings.HasPrefix(name, "tn_") {
		return u
	}
	if hasQuery {
		return dir + strings.TrimPrefix(name, "tn_") + "?" + query
	}
	return dir + strings.TrimPrefix(name, "tn_")
}
