package sources

import (
	"net/url"
	"regexp"
	"strings"
)

// YouTube URL and identifier parsing. Every extractor returns "" when the
// input does not contain a usable identifier.

var (
	videoURLRE  = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|v/|shorts/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	videoBareRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

	channelIDURLRE   = regexp.MustCompile(`youtube\.com/channel/(UC[a-zA-Z0-9_-]{22})`)
	channelNameURLRE = regexp.MustCompile(`youtube\.com/(?:c|user)/([a-zA-Z0-9_.-]+)`)
	channelHandleRE  = regexp.MustCompile(`youtube\.com/(@[a-zA-Z0-9_.-]+)`)
	channelLegacyRE  = regexp.MustCompile(`youtube\.com/([a-zA-Z0-9_.-]+)/?(?:[?#].*)?$`)
	channelBareRE    = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	handleBareRE     = regexp.MustCompile(`^@[a-zA-Z0-9_.-]+$`)

	playlistURLRE  = regexp.MustCompile(`youtube\.com/(?:playlist|watch)\?(?:.*&)?list=([a-zA-Z0-9_-]+)`)
	playlistBareRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// reservedPaths are top-level youtube.com paths that are not legacy channel names.
var reservedPaths = map[string]bool{
	"watch":  true, "playlist": true, "results": true, "feed": true,
	"shorts": true, "embed": true, "live": true, "channel": true,
	"c":      true, "user": true, "v": true, "about": true, "premium": true,
	"gaming": true, "music": true, "kids": true, "account": true,
	"signin": true, "logout": true, "upload": true, "t": true, "hashtag": true,
}

// VideoID extracts the 11-char video ID from a watch, short, embed, live or
// youtu.be URL, or accepts a bare ID.
func VideoID(s string) string {
	s = strings.TrimSpace(s)
	if m := videoURLRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	if videoBareRE.MatchString(s) {
		return s
	}
	return ""
}

// ChannelRef extracts a channel reference: a UC… ID, an @handle, or a
// custom/legacy name that must be resolved by search.
func ChannelRef(s string) string {
	s = strings.TrimSpace(s)
	if m := channelIDURLRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	if m := channelHandleRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	if m := channelNameURLRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	if channelBareRE.MatchString(s) || handleBareRE.MatchString(s) {
		return s
	}
	if m := channelLegacyRE.FindStringSubmatch(s); len(m) >= 2 && !reservedPaths[strings.ToLower(m[1])] {
		return m[1]
	}
	return ""
}

// PlaylistID extracts the list= parameter of a playlist or watch URL, or
// accepts a bare ID of at least 10 characters.
func PlaylistID(s string) string {
	s = strings.TrimSpace(s)
	if m := playlistURLRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1]
	}
	if playlistBareRE.MatchString(s) {
		return s
	}
	return ""
}

// URLInfo is everything Parse could find in one input.
type URLInfo struct {
	VideoID    string `json:"video_id,omitempty"`
	ChannelRef string `json:"channel_id,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Type       string `json:"url_type,omitempty"`
}

// Parse extracts all identifiers from s. Type reports the first kind found,
// checking video, then channel, then playlist.
func Parse(s string) URLInfo {
	info := URLInfo{
		VideoID:    VideoID(s),
		ChannelRef: ChannelRef(s),
		PlaylistID: PlaylistID(s),
	}
	switch {
	case info.VideoID != "":
		info.Type = "video"
	case info.ChannelRef != "":
		info.Type = "channel"
	case info.PlaylistID != "":
		info.Type = "playlist"
	}
	return info
}

// IsYouTubeURL reports whether s is an http(s) URL on a YouTube host.
func IsYouTubeURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Host) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// Normalize returns the canonical URL for the first identifier found in s.
func Normalize(s string) string {
	info := Parse(s)
	switch {
	case info.VideoID != "":
		return VideoURL(info.VideoID)
	case info.ChannelRef != "":
		return ChannelURL(info.ChannelRef)
	case info.PlaylistID != "":
		return PlaylistURL(info.PlaylistID)
	}
	return ""
}

// VideoURL returns the watch URL for id.
func VideoURL(id string) string { return "https://www.youtube.com/watch?v=" + id }

// PlaylistURL returns the playlist URL for id.
func PlaylistURL(id string) string { return "https://www.youtube.com/playlist?list=" + id }

// ChannelURL returns the channel URL for a UC… ID, or the handle URL otherwise.
func ChannelURL(ref string) string {
	if channelBareRE.MatchString(ref) {
		return "https://www.youtube.com/channel/" + ref
	}
	return "https://www.youtube.com/@" + strings.TrimPrefix(ref, "@")
}
