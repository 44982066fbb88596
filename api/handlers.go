package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"crewboard/board"
	"crewboard/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, b Board, tasks TaskLister, reminders ReminderLister, dir DirectoryView, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(tasks, auth, logger))
	e.GET("/api/board", getBoard(b, auth))
	e.POST("/api/tasks/:id/move", postMove(b, auth, deduper), GzipRequestMiddleware())
	e.GET("/api/reminders", getReminders(reminders, auth))
	e.GET("/api/categories", getCategories(dir, auth))
	e.GET("/api/contacts", getContacts(dir, auth))
	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func criteriaFromQuery(c echo.Context) domain.FilterCriteria {
	return domain.FilterCriteria{
		SearchQuery: c.QueryParam("search"),
		CategoryID:  c.QueryParam("category"),
		AssigneeID:  c.QueryParam("assignee"),
	}
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func getTasks(tasks TaskLister, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		criteria := criteriaFromQuery(c)
		metrics.SetCriteriaActive(criteria != domain.FilterCriteria{})

		filterStart := time.Now()
		filtered := domain.FilterTasks(tasks.ListTasks(), criteria)
		metrics.ObserveFilter(time.Since(filterStart))
		metrics.SetTasksReturned(len(filtered))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: filtered})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type boardResponse struct {
	Columns []board.Column `json:"columns"`
}

func getBoard(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, boardResponse{Columns: b.Snapshot(criteriaFromQuery(c))})
	}
}

func postMove(b Board, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		taskID := c.Param("id")
		lr := io.LimitReader(c.Request().Body, moveRequestMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()
		var req moveRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Status == "" {
			return c.String(http.StatusBadRequest, "missing status")
		}

		key := c.Request().Header.Get("Idempotency-Key")
		if key != "" && deduper != nil {
			added, err := deduper.Add(ctx, userID, key)
			if err != nil {
				c.Logger().Errorf("deduper add: %v", err)
			} else if !added {
				return c.JSON(http.StatusOK, moveResponse{Duplicate: true})
			}
		}

		if err := b.MoveTask(ctx, taskID, domain.Status(req.Status)); err != nil {
			if key != "" && deduper != nil {
				if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
					c.Logger().Errorf("deduper rollback: %v", rerr)
				}
			}
			switch {
			case errors.Is(err, board.ErrUnknownTask):
				return c.JSON(http.StatusNotFound, moveResponse{Error: "unknown task"})
			case errors.Is(err, board.ErrUnknownStatus):
				return c.JSON(http.StatusUnprocessableEntity, moveResponse{Error: "unknown status"})
			default:
				c.Logger().Error(err)
				return c.JSON(http.StatusInternalServerError, moveResponse{Error: "move failed"})
			}
		}
		return c.JSON(http.StatusOK, moveResponse{})
	}
}

type remindersResponse struct {
	Reminders []domain.Reminder `json:"reminders"`
}

func getReminders(reminders ReminderLister, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		list, err := reminders.ListReminders()
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, remindersResponse{Reminders: list})
	}
}

func getCategories(dir DirectoryView, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, dir.ListCategories())
	}
}

func getContacts(dir DirectoryView, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		contacts := dir.ListContacts()
		if c.QueryParam("assignable") == "1" {
			assignable := make([]domain.Contact, 0, len(contacts))
			for _, contact := range contacts {
				if contact.Role.Assignable() {
					assignable = append(assignable, contact)
				}
			}
			contacts = assignable
		}
		return c.JSON(http.StatusOK, contacts)
	}
}
