package test

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/gymstats"
	"github.com/2beens/liftlog/internal/gymstats/seed"
	"github.com/2beens/liftlog/internal/gymstats/stats"
	"github.com/2beens/liftlog/internal/gymstats/templates"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
)

func (s *IntegrationTestSuite) TestSessionLifecycle() {
	ctx := context.Background()

	status, _ := s.do(ctx, http.MethodGet, "/auth/whoami", "", nil)
	s.Equal(http.StatusUnauthorized, status)

	token := s.login(ctx, testUserID)
	status, body := s.do(ctx, http.MethodGet, "/auth/whoami", token, nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	var who auth.WhoAmIResponse
	s.decode(body, &who)
	s.Equal(testUserID, who.UserID)

	status, body = s.do(ctx, http.MethodPost, "/auth/logout", token, nil)
	s.Require().Equal(http.StatusOK, status, string(body))

	status, _ = s.do(ctx, http.MethodGet, "/auth/whoami", token, nil)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *IntegrationTestSuite) TestGenerateWeekFromTemplate() {
	const user = "e2e-generate"
	ctx := context.Background()
	userCtx := auth.ContextWithUser(ctx, user)
	now := time.Now()

	seeder := seed.New(s.store, 11).WithSkipChance(0)
	templateID, err := seeder.Template(userCtx, "PPL")
	s.Require().NoError(err)
	_, err = seeder.History(userCtx, 2, now)
	s.Require().NoError(err)

	token := s.login(ctx, user)
	target := weeks.WeekStart(now).AddDate(0, 0, 14)
	req := gymstats.GenerateRequest{WeekStart: target.Format(time.DateOnly)}

	status, body := s.do(ctx, http.MethodPost, "/gymstats/templates/"+templateID+"/generate", token, req)
	s.Require().Equal(http.StatusCreated, status, string(body))
	var report templates.Report
	s.decode(body, &report)
	s.Len(report.Workouts, 3)
	s.Empty(report.Skipped)
	s.Equal(templates.StateDone, report.State)

	// every day exists now
	status, body = s.do(ctx, http.MethodPost, "/gymstats/templates/"+templateID+"/generate", token, req)
	s.Require().Equal(http.StatusOK, status, string(body))
	s.decode(body, &report)
	s.Empty(report.Workouts)
	s.Len(report.Skipped, 3)

	// another user cannot use the template
	other := s.login(ctx, "e2e-other")
	status, _ = s.do(ctx, http.MethodPost, "/gymstats/templates/"+templateID+"/generate", other, req)
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestWeeklyOverview() {
	const user = "e2e-weekly"
	ctx := context.Background()

	summary, err := seed.New(s.store, 5).WithSkipChance(0).History(auth.ContextWithUser(ctx, user), 3, time.Now())
	s.Require().NoError(err)
	s.Equal(9, summary.Workouts)

	token := s.login(ctx, user)
	status, body := s.do(ctx, http.MethodGet, "/gymstats/weeks?count=4", token, nil)
	s.Require().Equal(http.StatusOK, status, string(body))

	var overview stats.WeeklyOverview
	s.decode(body, &overview)
	s.Require().Len(overview.Weeks, 4)
	total := 0
	for _, w := range overview.Weeks {
		total += w.Workouts
	}
	s.Equal(9, total)
}

func (s *IntegrationTestSuite) TestPersonalRecords() {
	const user = "e2e-records"
	ctx := context.Background()
	token := s.login(ctx, user)

	check := gymstats.RecordRequest{ExerciseName: "Bench Press", Weight: 100, Reps: 1, Save: true}
	status, body := s.do(ctx, http.MethodPost, "/gymstats/records/check", token, check)
	s.Require().Equal(http.StatusOK, status, string(body))
	var resp gymstats.RecordCheckResponse
	s.decode(body, &resp)
	s.True(resp.IsPR)
	s.Require().NotNil(resp.Record)

	// a tie is not a new record
	check.Save = false
	status, body = s.do(ctx, http.MethodPost, "/gymstats/records/check", token, check)
	s.Require().Equal(http.StatusOK, status, string(body))
	s.decode(body, &resp)
	s.False(resp.IsPR)

	status, body = s.do(ctx, http.MethodGet, "/gymstats/exercises/bench%20press/records", token, nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	var timeline gymstats.TimelineResponse
	s.decode(body, &timeline)
	s.Len(timeline.Records, 1)
	s.Require().NotNil(timeline.CurrentMax)
	s.Equal(100.0, timeline.CurrentMax.Weight)
}
