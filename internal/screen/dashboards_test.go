package screen_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/screen"
	"github.com/aipms/client/internal/testserver"
)

func TestStudentDashboard_Progress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signIn(t, "alice", session.RoleStudent)
	h.backend.Update(func(s *testserver.State) {
		s.StudentSubmissions = []project.StudentSubmission{
			{ID: 1, Title: "Irrigation", Status: project.StatusApproved},
			{ID: 2, Title: "Drone", Status: project.StatusPending},
		}
	})

	s := screen.NewStudentDashboard(h.deps)
	view := mountAndWait(t, s)
	require.Equal(t, screen.StatusReady, view.Status)
	require.Contains(t, view.Lines, "#1 Irrigation [Approved] progress -")

	t.Run("invalid values send nothing", func(t *testing.T) {
		before := h.backend.TotalCalls()
		for _, value := range []string{"", "abc", "-5", "101"} {
			_, err := s.Action(ctx, "progress", map[string]string{"id": "1", "value": value})
			require.NoError(t, err)
		}
		require.Equal(t, before, h.backend.TotalCalls())
		toasts := h.toasts.Drain()
		require.Len(t, toasts, 4)
		require.Equal(t, "Invalid Input", toasts[0].Title)
		require.Equal(t, "Please enter a number between 0 and 100.", toasts[0].Description)
	})

	t.Run("same value twice shows the same percentage", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, err := s.Action(ctx, "progress", map[string]string{"id": "1", "value": "50"})
			require.NoError(t, err)
			require.Contains(t, s.View().Lines, "#1 Irrigation [Approved] progress 50%")
		}
		require.Equal(t, []string{"Progress Updated", "Progress Updated"}, titles(h.toasts.Drain()))
	})

	t.Run("server rejection keeps the row", func(t *testing.T) {
		_, err := s.Action(ctx, "progress", map[string]string{"id": "2", "value": "10"})
		require.NoError(t, err)
		require.Contains(t, s.View().Lines, "#2 Drone [Pending] progress -")
		toasts := h.toasts.Drain()
		require.Equal(t, []string{"Update Failed"}, titles(toasts))
		require.Equal(t, "Could not update progress. The project may not be approved yet.", toasts[0].Description)
	})

	t.Run("viva only for approved projects", func(t *testing.T) {
		res, err := s.Action(ctx, "viva", map[string]string{"id": "1"})
		require.NoError(t, err)
		require.Equal(t, "/ai-viva/1", res.Redirect)

		res, err = s.Action(ctx, "viva", map[string]string{"id": "2"})
		require.NoError(t, err)
		require.Empty(t, res.Redirect)
		require.Equal(t, []string{"Viva Unavailable"}, titles(h.toasts.Drain()))
	})
}

func TestStudentDashboard_LoadFailure(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "alice", session.RoleStudent)
	h.backend.Fail(http.MethodGet, "/student/submissions/", http.StatusInternalServerError)

	var logs bytes.Buffer
	h.deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	view := mountAndWait(t, screen.NewStudentDashboard(h.deps))
	require.Equal(t, screen.StatusError, view.Status)
	require.Equal(t, "Failed to fetch submissions.", view.Error)
	require.Empty(t, view.Lines)
	require.Contains(t, logs.String(), "status=500")
	require.NotContains(t, logs.String(), "credentials_rejected")
}

func TestStudentDashboard_RejectedCredentialsAreLogged(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "alice", session.RoleStudent)
	h.backend.Fail(http.MethodGet, "/student/submissions/", http.StatusForbidden)
	var logs bytes.Buffer
	h.deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	view := mountAndWait(t, screen.NewStudentDashboard(h.deps))
	require.Equal(t, screen.StatusError, view.Status)
	require.Contains(t, logs.String(), `msg="screen load failed"`)
	require.Contains(t, logs.String(), "status=403")
	require.Contains(t, logs.String(), "credentials_rejected=true")
}

// blockingBackend holds the student submissions request until released.
type blockingBackend struct {
	screen.Backend
	release chan struct{}
	started chan struct{}
}

func (b *blockingBackend) StudentSubmissions(ctx context.Context) ([]project.StudentSubmission, error) {
	close(b.started)
	<-b.release
	return []project.StudentSubmission{{ID: 9, Title: "Late"}}, nil
}

func TestStudentDashboard_LateResultAfterUnmountIsDiscarded(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{}), started: make(chan struct{})}
	s := screen.NewStudentDashboard(screen.Deps{API: backend})

	ctx, cancel := context.WithCancel(context.Background())
	s.Mount(ctx)
	<-backend.started
	require.Equal(t, screen.StatusLoading, s.View().Status)

	s.Unmount()
	cancel()
	close(backend.release)

	// The load goroutine may still be finishing; give it a moment.
	time.Sleep(50 * time.Millisecond)
	view := s.View()
	require.Equal(t, screen.StatusLoading, view.Status)
	require.Nil(t, view.Data)
}

func TestTeacherDashboard_Review(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signIn(t, "tom", session.RoleTeacher)
	h.backend.Update(func(s *testserver.State) {
		s.Appointed = []project.TeacherSubmission{
			{ID: 41, Title: "Compiler", Student: project.UserRef{Username: "amy"}},
			{ID: 42, Title: "Robot", Student: project.UserRef{Username: "ben"}},
		}
		s.Unappointed = []project.TeacherSubmission{{ID: 50, Title: "Orphan"}}
	})

	s := screen.NewTeacherDashboard(h.deps)
	view := mountAndWait(t, s)
	require.Len(t, view.Data.(map[string]any)["submissions"], 2)
	require.Equal(t, 1, h.backend.Calls(http.MethodGet, "/teacher/appointed/"))

	res, err := s.Action(ctx, "approve", map[string]string{"id": "42"})
	require.NoError(t, err)
	require.Empty(t, res.Redirect)

	subs := s.View().Data.(map[string]any)["submissions"].([]project.TeacherSubmission)
	require.Len(t, subs, 1)
	require.Equal(t, int64(41), subs[0].ID)
	require.Equal(t, 1, h.backend.Calls(http.MethodGet, "/teacher/appointed/"), "no re-fetch after review")
	toasts := h.toasts.Drain()
	require.Equal(t, []string{"Success"}, titles(toasts))
	require.Equal(t, "Project status updated.", toasts[0].Description)

	_, err = s.Action(ctx, "reject", map[string]string{"id": "42"})
	require.NoError(t, err)
	toasts = h.toasts.Drain()
	require.Equal(t, []string{"Update Failed"}, titles(toasts))
	require.Equal(t, "This project may have already been reviewed.", toasts[0].Description)

	_, err = s.Action(ctx, "tab", map[string]string{"view": "unappointed"})
	require.NoError(t, err)
	view = s.View()
	require.Equal(t, "Tab: unappointed", view.Lines[0])
	subs = view.Data.(map[string]any)["submissions"].([]project.TeacherSubmission)
	require.Equal(t, int64(50), subs[0].ID)

	_, err = s.Action(ctx, "tab", map[string]string{"view": "mine"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestTeacherDashboard_EmptyTexts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signIn(t, "tom", session.RoleTeacher)

	s := screen.NewTeacherDashboard(h.deps)
	view := mountAndWait(t, s)
	require.Contains(t, view.Lines, "No projects awaiting your review.")

	_, err := s.Action(ctx, "tab", map[string]string{"view": "unappointed"})
	require.NoError(t, err)
	require.Contains(t, s.View().Lines, "No other unappointed projects found.")
}

func TestTeacherDashboard_LoadFailure(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "tom", session.RoleTeacher)
	h.backend.Fail(http.MethodGet, "/teacher/appointed/", http.StatusForbidden)

	view := mountAndWait(t, screen.NewTeacherDashboard(h.deps))
	require.Equal(t, "Failed to fetch submissions. Please try again.", view.Error)
}

func TestProjectArchiving(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signIn(t, "hod", session.RoleHODAdmin)
	h.backend.Update(func(s *testserver.State) {
		s.Projects = []project.Project{
			{ID: 1, Title: "Alpha", Status: project.StatusInProgress},
			{ID: 2, Title: "Beta", Status: project.StatusCompleted},
		}
	})

	s := screen.NewProjectArchiving(h.deps)
	mountAndWait(t, s)

	_, err := s.Action(ctx, "complete", map[string]string{"id": "1"})
	require.NoError(t, err)
	projects := s.View().Data.([]project.Project)
	require.Equal(t, project.StatusCompleted, projects[0].Status)
	require.Equal(t, 2, h.backend.Calls(http.MethodGet, "/projects/all/"), "archiving re-fetches")
	require.Equal(t, []string{"Status Updated"}, titles(h.toasts.Drain()))

	_, err = s.Action(ctx, "complete", map[string]string{"id": "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"Update Failed"}, titles(h.toasts.Drain()))

	_, err = s.Action(ctx, "archive", map[string]string{"id": "2"})
	require.NoError(t, err)
	require.Equal(t, project.StatusArchived, s.View().Data.([]project.Project)[1].Status)
}

func TestProjectArchiving_LoadFailure(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "amy", session.RoleStudent)
	h.backend.Fail(http.MethodGet, "/projects/all/", http.StatusForbidden)

	view := mountAndWait(t, screen.NewProjectArchiving(h.deps))
	require.Equal(t, "Failed to fetch projects. Make sure you have a Teacher or Admin account.", view.Error)
}

func TestSessionGoneRedirects(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "alice", session.RoleStudent)
	h.backend.Update(func(s *testserver.State) {
		s.StudentSubmissions = []project.StudentSubmission{{ID: 1, Title: "A", Status: project.StatusApproved}}
	})
	s := screen.NewStudentDashboard(h.deps)
	mountAndWait(t, s)

	require.NoError(t, h.store.Clear(context.Background()))
	res, err := s.Action(context.Background(), "progress", map[string]string{"id": "1", "value": "20"})
	require.NoError(t, err)
	require.Equal(t, "/", res.Redirect)
	require.Empty(t, h.toasts.Drain())
}
