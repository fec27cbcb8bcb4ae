// Package schedule はワーカーモードでの定期スキャンを提供する。
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/episcout/internal/model"
)

// ScanRunner はスキャンを1サイクル実行するインターフェース。
type ScanRunner interface {
	RunScan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error)
}

// Scheduler はcron式に従ってスキャンを定期実行する。
// 前回のスキャンが実行中の場合、そのティックはスキップする。
type Scheduler struct {
	runner   ScanRunner
	logger   *slog.Logger
	spec     string
	schedule cron.Schedule
	req      model.ScanRequest
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// specは標準のcron式または "@every 30m" などの記述子。
func NewScheduler(runner ScanRunner, logger *slog.Logger, spec string, req model.ScanRequest) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid scan schedule %q: %w", spec, err)
	}
	return &Scheduler{
		runner:   runner,
		logger:   logger,
		spec:     spec,
		schedule: sched,
		req:      req,
	}, nil
}

// job は定期スキャンのジョブを返す。
// 同じジョブ値の実行は直列化され、実行中に呼ばれた分はスキップされる。
func (s *Scheduler) job(ctx context.Context) cron.Job {
	chain := cron.NewChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	)
	return chain.Then(cron.FuncJob(func() { s.runLogged(ctx) }))
}

// Start はスケジューラを起動し、コンテキストがキャンセルされるまでブロックする。
// 起動直後に1回スキャンを実行する。初回もティックと同じジョブで実行するため重複しない。
// 停止時は実行中のスキャンの終了を待つ。
func (s *Scheduler) Start(ctx context.Context) {
	c := cron.New()
	job := s.job(ctx)
	c.Schedule(s.schedule, job)

	s.logger.Info("スキャンスケジューラを開始しました",
		slog.String("schedule", s.spec),
		slog.Int("days_limit", s.req.DaysLimit),
		slog.Bool("fetch_unknown", s.req.FetchUnknown),
	)

	c.Start()
	job.Run()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("スキャンスケジューラを停止しました")
}

// RunOnce はスキャンを1回実行する。
func (s *Scheduler) RunOnce(ctx context.Context) (*model.ScanResult, error) {
	return s.runner.RunScan(ctx, s.req)
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("定期スキャンの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("定期スキャンが完了しました",
		slog.Int("matched", result.MatchedCount),
		slog.Int("saved_trusted", result.SavedTrustedCount),
		slog.Int("unknown", len(result.UnknownArticles)),
	)
}

// cronLogger はcron.Loggerをslogに橋渡しする。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err.Error())...)
}
