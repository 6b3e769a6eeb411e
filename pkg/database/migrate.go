package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateLogger 将 golang-migrate 的日志转发到 zap
type migrateLogger struct {
	logger *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Verbose debug 级别时输出每个迁移文件的执行过程
func (l *migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zapcore.DebugLevel)
}

// RunMigrations 执行数据库迁移
// 应用全部未执行的嵌入迁移，并记录迁移前后的版本
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}
	target, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("读取迁移文件版本失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}
	m.Log = &migrateLogger{logger: logger.Named("migrate")}

	from, dirty, err := schemaVersion(m)
	if err != nil {
		return fmt.Errorf("读取数据库版本失败: %w", err)
	}
	if dirty {
		// 上次迁移中断，需人工修复后 force 版本
		logger.Error("数据库迁移处于 dirty 状态", zap.Uint("version", from))
		return fmt.Errorf("数据库迁移处于 dirty 状态: version %d", from)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("数据库已是最新版本", zap.Uint("version", from))
			return nil
		}
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	to, _, err := schemaVersion(m)
	if err != nil {
		return fmt.Errorf("读取数据库版本失败: %w", err)
	}
	logger.Info("数据库迁移完成",
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Uint("target", target),
	)

	return nil
}

// schemaVersion 数据库当前版本，尚未迁移时为 0
func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// latestVersion 迁移文件中的最高版本
func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, err
		}
		version = next
	}
}
