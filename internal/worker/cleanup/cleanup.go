// Package cleanup は期限切れセッションの削除ジョブを提供する。
// OTPの期限切れは検証時に判定するため、このジョブでは削除しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter は期限切れセッションの一括削除を抽象化するインターフェース。
// repository.SessionRepositoryが満たす。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// cleanupサブコマンドから1回だけ実行される。冪等。
type CleanupJob struct {
	sessions ExpiredSessionDeleter
	logger   *slog.Logger
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions ExpiredSessionDeleter, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は期限切れセッションを削除し、削除件数を返す。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	start := j.now()

	deleted, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)

	return deleted, nil
}
