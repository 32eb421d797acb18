/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"piron-pools-go/internal/listener"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/go-playground/validator/v10"
)

// ServiceConfig contains the dependencies of Service
type ServiceConfig struct {
	DbService  store.PoolStore
	Reconciler *listener.Reconciler
	Policy     models.PolicyConfig
	Cache      *MetricsCache
}

// Service implements the pool backend operations on top of the document store
// and the chain reconciler. Authorization is checked here, not in the store.
type Service struct {
	dbService  store.PoolStore
	reconciler *listener.Reconciler
	policy     models.PolicyConfig
	cache      *MetricsCache
	validate   *validator.Validate
}

func NewService(cfg ServiceConfig) *Service {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Service{
		dbService:  cfg.DbService,
		reconciler: cfg.Reconciler,
		policy:     cfg.Policy,
		cache:      cfg.Cache,
		validate:   validate,
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if _, err := s.dbService.CountAdmins(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache health check failed: %w", err)
		}
	}
	return nil
}

func (s *Service) requireReconciler() error {
	if s.reconciler == nil {
		return ErrChainUnavailable
	}
	return nil
}
