package postgresql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
	mockPg "github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql/mock"
	"github.com/stretchr/testify/assert"
)

func TestCheckHealth(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(db *mockPg.MockPostgreSQLClient)
		assertFn func(t *testing.T, h *postgresql.HealthCheck)
	}{
		{
			name: "healthy",
			mockFn: func(db *mockPg.MockPostgreSQLClient) {
				db.EXPECT().Ping(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, h *postgresql.HealthCheck) {
				assert.Equal(t, "healthy", h.Status)
				assert.Empty(t, h.Error)
			},
		},
		{
			name: "ping failure",
			mockFn: func(db *mockPg.MockPostgreSQLClient) {
				db.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
			},
			assertFn: func(t *testing.T, h *postgresql.HealthCheck) {
				assert.Equal(t, "unhealthy", h.Status)
				assert.Equal(t, "ping failed: connection refused", h.Error)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			db := mockPg.NewMockPostgreSQLClient(ctrl)
			db.EXPECT().DatabaseName().Return("exchange")
			db.EXPECT().Host().Return("db.internal")
			db.EXPECT().Port().Return(5432)
			db.EXPECT().Stats().Return(nil)
			tc.mockFn(db)

			h := postgresql.CheckHealth(context.Background(), db)

			assert.Equal(t, "exchange", h.DatabaseName)
			assert.Equal(t, "db.internal", h.Host)
			assert.Equal(t, 5432, h.Port)
			tc.assertFn(t, h)
		})
	}
}
