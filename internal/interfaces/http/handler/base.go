// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"encoding/json"
	"time"

	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	"novel-journey-api/internal/infrastructure/persistence/redis"
	"novel-journey-api/pkg/errors"
	"novel-journey-api/pkg/logger"
)

const projectCacheTTL = 10 * time.Minute

// projectStore 项目快照的读写封装。
// 读走缓存（singleflight 防击穿），写穿到仓储后失效缓存。
type projectStore struct {
	repo  repository.ProjectRepository
	cache *redis.Cache
}

// load 加载项目；不存在时返回 ErrProjectNotFound
func (s *projectStore) load(ctx context.Context, projectID string) (*entity.Project, error) {
	if s.cache != nil {
		data, err := s.cache.GetOrLoadSafe(ctx, redis.ProjectKey(projectID), projectCacheTTL, func() (interface{}, error) {
			return s.repo.GetByID(ctx, projectID)
		})
		if err == nil && data != nil {
			var project entity.Project
			if jsonErr := json.Unmarshal(data, &project); jsonErr == nil {
				if project.ID == "" {
					return nil, errors.ErrProjectNotFound
				}
				return &project, nil
			}
		}
		if err != nil {
			logger.Warn(ctx, "project cache load failed, falling back to repository",
				"project_id", projectID, "error", err.Error())
		}
	}

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errors.ErrProjectNotFound
	}
	return project, nil
}

// save 保存项目快照并失效缓存
func (s *projectStore) save(ctx context.Context, project *entity.Project) error {
	now := time.Now()
	if project.State != nil {
		project.State.LastSaved = &now
	}
	if err := s.repo.Save(ctx, project); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateProject(ctx, project.ID); err != nil {
			logger.Warn(ctx, "failed to invalidate project cache",
				"project_id", project.ID, "error", err.Error())
		}
	}
	return nil
}
