package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases maps configuration names to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockSet normalises configured names into the set of blocked CDP types.
func blockSet(names []string) map[proto.NetworkResourceType]bool {
	out := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if t, ok := resourceAliases[n]; ok {
			out[t] = true
			continue
		}
		out[proto.NetworkResourceType(strings.ToUpper(n[:1])+n[1:])] = true
	}
	return out
}

// applyResourceBlocking fails requests for the configured resource types.
// The game needs its scripts, stylesheets and websocket: only cosmetic
// types should be listed.
func applyResourceBlocking(page *rod.Page, names []string) *rod.HijackRouter {
	blocked := blockSet(names)
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
