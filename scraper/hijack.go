package scraper

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// blockedSet builds an O(1) lookup set from config strings. Unknown names
// are ignored.
func blockedSet(blockedTypes []string) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	return blocked
}

// setupHijack installs a request interceptor on the page that fails
// requests of the blocked resource types. Extraction only reads text and
// attributes, so images, fonts and media are dead weight.
//
// Returns the running HijackRouter so the caller can Stop it, or nil if
// there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := blockedSet(blockedTypes)
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
