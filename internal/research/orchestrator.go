// Package research runs the research pipeline: transcript parsing, the
// enrichment stages, customer DNA synthesis and report publication.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/search"
)

// VideoStage mines video content.
type VideoStage interface {
	Run(ctx context.Context, ti *TranscriptInsights) (*VideoResult, error)
}

// CommunityStage mines community threads.
type CommunityStage interface {
	Run(ctx context.Context, ti *TranscriptInsights) (*CommunityResult, error)
}

// CompetitorStage analyses competitor positioning.
type CompetitorStage interface {
	Run(ctx context.Context, ti *TranscriptInsights) (*CompetitorAnalysis, error)
}

// DNAStage synthesises the customer DNA report from raw artifacts.
type DNAStage interface {
	Run(ctx context.Context, ti *TranscriptInsights, posts []search.Post, videos []search.Video) (*CustomerDNA, error)
}

// Publisher atomically publishes a finished report.
type Publisher interface {
	PublishReport(ctx context.Context, tenantID, reportID string, reportJSON []byte, reportText string) error
}

// Orchestrator runs one research job from transcript to published report.
type Orchestrator struct {
	Fetcher    search.PageFetcher
	LLM        llm.Gateway
	Video      VideoStage
	Community  CommunityStage
	Competitor CompetitorStage
	DNA        DNAStage
	Publisher  Publisher
}

// Run executes the pipeline for job. Only a transcript parse failure or a
// publish failure is returned; enrichment failures leave their section nil.
func (o *Orchestrator) Run(ctx context.Context, job model.ResearchJob) error {
	log := zap.L().With(zap.String("tenant_id", job.TenantID), zap.String("report_id", job.ReportID))
	log.Info("research: starting job")
	start := time.Now()

	analysisContext := o.assembleContext(ctx, job, log)

	ti, err := ParseTranscript(ctx, o.LLM, analysisContext)
	if err != nil {
		log.Error("research: transcript parse failed", zap.Error(err))
		return err
	}

	report := &Report{TranscriptInsights: *ti}

	// Stages run one at a time to stay inside the shared token budget.
	var videoRes *VideoResult
	trackStage(log, stageVideo, func() error {
		r, err := o.Video.Run(ctx, ti)
		if err == nil {
			videoRes = r
		}
		return err
	})

	var communityRes *CommunityResult
	trackStage(log, stageCommunity, func() error {
		r, err := o.Community.Run(ctx, ti)
		if err == nil {
			communityRes = r
		}
		return err
	})

	trackStage(log, stageCompetitor, func() error {
		r, err := o.Competitor.Run(ctx, ti)
		if err == nil {
			report.CompetitorAnalysis = r
		}
		return err
	})

	var posts []search.Post
	var videos []search.Video
	if videoRes != nil {
		report.YouTubeInsights = videoRes.Insights
		videos = videoRes.RawVideos
	}
	if communityRes != nil {
		report.RedditSegments = communityRes.Insights
		posts = communityRes.RawPosts
	}

	trackStage(log, stageDNA, func() error {
		r, err := o.DNA.Run(ctx, ti, posts, videos)
		if err == nil {
			report.CustomerDNA = r
		}
		return err
	})

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "research: marshal report")
	}
	if err := o.Publisher.PublishReport(ctx, job.TenantID, job.ReportID, reportJSON, RenderText(report)); err != nil {
		log.Error("research: publish failed", zap.Error(err))
		return eris.Wrap(err, "research: publish report")
	}

	log.Info("research: job complete",
		zap.Duration("duration", time.Since(start)),
		zap.Bool("youtube", report.YouTubeInsights != nil),
		zap.Bool("reddit", report.RedditSegments != nil),
		zap.Bool("competitors", report.CompetitorAnalysis != nil),
		zap.Bool("customer_dna", report.CustomerDNA != nil),
	)
	return nil
}

// assembleContext prepends website content to the transcript. Any failure
// falls back to the bare transcript.
func (o *Orchestrator) assembleContext(ctx context.Context, job model.ResearchJob, log *zap.Logger) string {
	if job.WebsiteURL == "" || o.Fetcher == nil {
		return BuildContext(job.TranscriptText, "", "")
	}
	content := o.Fetcher.FetchPage(ctx, job.WebsiteURL)
	if content == "" {
		log.Warn("research: website fetch failed, using bare transcript", zap.String("url", job.WebsiteURL))
	}
	return BuildContext(job.TranscriptText, job.WebsiteURL, content)
}

// trackStage runs fn, recovering panics, and logs the outcome and duration.
// It never propagates a failure.
func trackStage(log *zap.Logger, name string, fn func() error) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	duration := time.Since(start).Milliseconds()

	if err != nil {
		log.Error("research: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return
	}
	log.Info("research: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
	)
}
