package extractor

import (
	"context"
	"time"
)

// Engagement benchmarks, in percent of views.
const (
	excellentEngagement = 10.0
	goodEngagement      = 5.0
	averageEngagement   = 2.0
	healthyLikeRatio    = 90.0
)

// Benchmarks are the thresholds an engagement rate is graded against.
type Benchmarks struct {
	Excellent float64 `json:"excellent_engagement"`
	Good      float64 `json:"good_engagement"`
	Average   float64 `json:"average_engagement"`
	Poor      float64 `json:"poor_engagement"`
}

var defaultBenchmarks = Benchmarks{
	Excellent: excellentEngagement,
	Good:      goodEngagement,
	Average:   averageEngagement,
	Poor:      averageEngagement,
}

// EngagementMetrics are the computed interaction figures of a video.
type EngagementMetrics struct {
	EngagementRate    float64  `json:"engagement_rate"`
	LikeRatio         *float64 `json:"like_ratio"`
	EngagementLevel   string   `json:"engagement_level"`
	TotalInteractions int64    `json:"total_interactions"`
	ViewsPerLike      *float64 `json:"views_per_like"`
	ViewsPerComment   *float64 `json:"views_per_comment"`
}

// AnalysisMetadata dates an engagement analysis.
type AnalysisMetadata struct {
	APISource    string `json:"api_source"`
	AnalysisDate string `json:"analysis_date"`
}

// EngagementAnalysis grades a video's engagement. Without statistics only
// VideoID and Error are set.
type EngagementAnalysis struct {
	VideoID         string             `json:"video_id"`
	Title           string             `json:"title,omitempty"`
	Analysis        *EngagementMetrics `json:"engagement_analysis,omitempty"`
	Benchmarks      *Benchmarks        `json:"benchmarks,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Metadata        *AnalysisMetadata  `json:"metadata,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// EngagementLevel grades an engagement rate.
func EngagementLevel(rate float64) string {
	switch {
	case rate >= excellentEngagement:
		return "Excellent"
	case rate >= goodEngagement:
		return "Good"
	case rate >= averageEngagement:
		return "Average"
	default:
		return "Below Average"
	}
}

// Recommendations suggests improvements for a rate and like ratio.
// The like-ratio rule only applies when the ratio is known.
func Recommendations(rate float64, likeRatio *float64) []string {
	recs := []string{}
	if rate < averageEngagement {
		recs = append(recs,
			"Consider improving thumbnail and title to increase click-through rate",
			"Add clear calls-to-action to encourage likes and comments",
			"Engage with viewers by responding to comments",
		)
	}
	if likeRatio != nil && *likeRatio < healthyLikeRatio {
		recs = append(recs, "Content might be controversial or not meeting viewer expectations")
	}
	if rate < goodEngagement {
		recs = append(recs,
			"Try asking questions to encourage comments",
			"Create content that sparks discussion",
			"Optimize posting time for your audience",
		)
	}
	return recs
}

func perInteraction(views, n int64) *float64 {
	if n <= 0 {
		return nil
	}
	r := round2(float64(views) / float64(n))
	return &r
}

func analyze(info VideoInfo, now time.Time) *EngagementAnalysis {
	if info.Statistics == nil {
		return &EngagementAnalysis{
			VideoID: info.ID,
			Error:   "No statistics available for engagement analysis",
		}
	}
	st := info.Statistics
	var rate float64
	if info.EngagementRate != nil {
		rate = *info.EngagementRate
	}
	b := defaultBenchmarks
	return &EngagementAnalysis{
		VideoID: info.ID,
		Title:   info.Title,
		Analysis: &EngagementMetrics{
			EngagementRate:    rate,
			LikeRatio:         info.LikeRatio,
			EngagementLevel:   EngagementLevel(rate),
			TotalInteractions: st.LikeCount + st.CommentCount,
			ViewsPerLike:      perInteraction(st.ViewCount, st.LikeCount),
			ViewsPerComment:   perInteraction(st.ViewCount, st.CommentCount),
		},
		Benchmarks:      &b,
		Recommendations: Recommendations(rate, info.LikeRatio),
		Metadata: &AnalysisMetadata{
			APISource:    APISource,
			AnalysisDate: now.UTC().Format(time.DateOnly),
		},
	}
}

// AnalyzeEngagement grades the engagement of the video at rawURL.
func (e *Extractor) AnalyzeEngagement(ctx context.Context, rawURL string) (*EngagementAnalysis, error) {
	var out *EngagementAnalysis
	err := track(ctx, "analyze_engagement", func(ctx context.Context) error {
		v, err := e.fetchVideo(ctx, rawURL)
		if err != nil {
			return err
		}
		out = analyze(shapeVideo(v), e.now())
		return nil
	})
	if err != nil {
		return nil, wrapOp("analyze engagement", err)
	}
	return out, nil
}
