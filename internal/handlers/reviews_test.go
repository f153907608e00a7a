package handlers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/kazilink/backend/internal/models"
)

func ratingOf(t *testing.T, e *testEnv, id interface{}) float64 {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.First(&user, "id = ?", id).Error)
	return user.AverageRating
}

func TestCreateReviewUpdatesAverage(t *testing.T) {
	e := newTestEnv(t)
	employer := e.createUser(t, models.RoleEmployer, 0)
	tasker := e.createUser(t, models.RoleTasker, 0)
	taskA := e.createTask(t, employer, models.TaskStatusCompleted, tasker)
	taskB := e.createTask(t, employer, models.TaskStatusCompleted, tasker)

	token := e.token(t, employer)

	status, _ := e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": tasker.ID, "taskId": taskA.ID, "rating": 5, "comment": "Excellent work",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 5.0, ratingOf(t, e, tasker.ID))

	status, _ = e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": tasker.ID, "taskId": taskB.ID, "rating": 2,
	})
	require.Equal(t, http.StatusCreated, status)
	// exact mean of 5 and 2
	require.Equal(t, 3.5, ratingOf(t, e, tasker.ID))
}

func TestReviewGuards(t *testing.T) {
	e := newTestEnv(t)
	employer := e.createUser(t, models.RoleEmployer, 0)
	tasker := e.createUser(t, models.RoleTasker, 0)
	stranger := e.createUser(t, models.RoleTasker, 0)
	completed := e.createTask(t, employer, models.TaskStatusCompleted, tasker)
	open := e.createTask(t, employer, models.TaskStatusOpen, nil)

	token := e.token(t, employer)

	// rating out of range
	status, _ := e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": tasker.ID, "taskId": completed.ID, "rating": 6,
	})
	require.Equal(t, http.StatusBadRequest, status)

	// task not completed
	status, _ = e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": tasker.ID, "taskId": open.ID, "rating": 4,
	})
	require.Equal(t, http.StatusBadRequest, status)

	// caller not a party
	status, _ = e.request(t, http.MethodPost, "/api/v1/reviews", e.token(t, stranger), fiber.Map{
		"revieweeId": tasker.ID, "taskId": completed.ID, "rating": 4,
	})
	require.Equal(t, http.StatusForbidden, status)

	// no self-review
	status, _ = e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": employer.ID, "taskId": completed.ID, "rating": 4,
	})
	require.Equal(t, http.StatusBadRequest, status)

	// reviewee must be a party
	status, _ = e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": stranger.ID, "taskId": completed.ID, "rating": 4,
	})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestDuplicateReviewRejected(t *testing.T) {
	e := newTestEnv(t)
	employer := e.createUser(t, models.RoleEmployer, 0)
	tasker := e.createUser(t, models.RoleTasker, 0)
	task := e.createTask(t, employer, models.TaskStatusCompleted, tasker)

	token := e.token(t, employer)
	body := fiber.Map{"revieweeId": tasker.ID, "taskId": task.ID, "rating": 4}

	status, _ := e.request(t, http.MethodPost, "/api/v1/reviews", token, body)
	require.Equal(t, http.StatusCreated, status)

	status, resp := e.request(t, http.MethodPost, "/api/v1/reviews", token, body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "You have already reviewed this task", resp["error"])

	// both parties may review the same task, one review each
	status, _ = e.request(t, http.MethodPost, "/api/v1/reviews", e.token(t, tasker), fiber.Map{
		"revieweeId": employer.ID, "taskId": task.ID, "rating": 5,
	})
	require.Equal(t, http.StatusCreated, status)
}

func TestUpdateReviewRecomputesAverage(t *testing.T) {
	e := newTestEnv(t)
	employer := e.createUser(t, models.RoleEmployer, 0)
	tasker := e.createUser(t, models.RoleTasker, 0)
	task := e.createTask(t, employer, models.TaskStatusCompleted, tasker)

	token := e.token(t, employer)
	status, body := e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": tasker.ID, "taskId": task.ID, "rating": 2,
	})
	require.Equal(t, http.StatusCreated, status)
	reviewID := body["data"].(map[string]interface{})["id"].(string)

	// only the reviewer or an admin may edit
	status, _ = e.request(t, http.MethodPut, "/api/v1/reviews/"+reviewID, e.token(t, tasker),
		fiber.Map{"rating": 5})
	require.Equal(t, http.StatusForbidden, status)

	status, _ = e.request(t, http.MethodPut, "/api/v1/reviews/"+reviewID, token,
		fiber.Map{"rating": 5})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 5.0, ratingOf(t, e, tasker.ID))
}

func TestDeleteLastReviewResetsAverage(t *testing.T) {
	e := newTestEnv(t)
	employer := e.createUser(t, models.RoleEmployer, 0)
	tasker := e.createUser(t, models.RoleTasker, 0)
	task := e.createTask(t, employer, models.TaskStatusCompleted, tasker)

	token := e.token(t, employer)
	status, body := e.request(t, http.MethodPost, "/api/v1/reviews", token, fiber.Map{
		"revieweeId": tasker.ID, "taskId": task.ID, "rating": 4,
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 4.0, ratingOf(t, e, tasker.ID))

	reviewID := body["data"].(map[string]interface{})["id"].(string)
	status, _ = e.request(t, http.MethodDelete, "/api/v1/reviews/"+reviewID, token, nil)
	require.Equal(t, http.StatusOK, status)

	// no reviews left, rating falls back to zero
	require.Equal(t, 0.0, ratingOf(t, e, tasker.ID))
}

func TestReviewsForUser(t *testing.T) {
	e := newTestEnv(t)
	employer := e.createUser(t, models.RoleEmployer, 0)
	tasker := e.createUser(t, models.RoleTasker, 0)
	task := e.createTask(t, employer, models.TaskStatusCompleted, tasker)

	_, _ = e.request(t, http.MethodPost, "/api/v1/reviews", e.token(t, employer), fiber.Map{
		"revieweeId": tasker.ID, "taskId": task.ID, "rating": 5,
	})

	status, body := e.request(t, http.MethodGet, "/api/v1/reviews/user/"+tasker.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), body["count"])

	status, body = e.request(t, http.MethodGet, "/api/v1/reviews/user/"+employer.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(0), body["count"])
}
