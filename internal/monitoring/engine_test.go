package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"sonarboard/internal/cache"
	"sonarboard/internal/config"
	"sonarboard/internal/sonar"
)

func engineConfig() *config.Config {
	companyID := int64(7)
	cfg := &config.Config{}
	cfg.Sonar.CompanyID = &companyID
	cfg.Sonar.PageSize = 50
	cfg.Sonar.MaxPages = 2
	cfg.Cache.SummaryTTL = time.Minute
	cfg.Cache.DownTTL = time.Minute
	cfg.Cache.WarningTTL = time.Minute
	return cfg
}

func TestEngine_PassesFilterUpstream(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Execute", mock.Anything, mock.MatchedBy(func(req sonar.Request) bool {
		return req.Kind == sonar.KindDown &&
			req.Variables.CompanyID != nil && *req.Variables.CompanyID == 7 &&
			req.Variables.PerPage != nil && *req.Variables.PerPage == 50
	}), mock.Anything).Run(respond(t, downFixture)).Return(nil).Once()

	engine := NewEngine(engineConfig(), exec, nil, nil)

	result := engine.Aggregator().DownCustomers(context.Background())
	require.True(t, result.OK)
	assert.Len(t, result.Customers, 2)
	exec.AssertExpectations(t)
}

func TestEngine_RefreshAllWarmsEveryCache(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Execute", mock.Anything, kindIs(sonar.KindSummary), mock.Anything).Run(respond(t, summaryFixture)).Return(nil).Once()
	exec.On("Execute", mock.Anything, kindIs(sonar.KindDown), mock.Anything).Run(respond(t, downFixture)).Return(nil).Once()
	exec.On("Execute", mock.Anything, kindIs(sonar.KindWarning), mock.Anything).Run(respond(t, warningFixture)).Return(nil).Once()

	engine := NewEngine(engineConfig(), exec, nil, nil)
	require.NoError(t, engine.RefreshAll(context.Background()))

	agg := engine.Aggregator()
	assert.Equal(t, cache.SourceCache, agg.EquipmentSummary(context.Background()).Source)
	assert.Equal(t, cache.SourceCache, agg.DownCustomers(context.Background()).Source)
	assert.Equal(t, cache.SourceCache, agg.WarningCustomers(context.Background()).Source)
	exec.AssertExpectations(t)
}

func TestEngine_StartWithoutIntervalIsIdle(t *testing.T) {
	engine := NewEngine(engineConfig(), &mockExecutor{}, nil, nil)

	require.NoError(t, engine.Start(context.Background(), nil))
	engine.Stop()
	engine.Stop()
}
