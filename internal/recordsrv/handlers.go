package recordsrv

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
)

const defaultLeaderboardDays = 30

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// eqParam reads a column=eq.value filter. ok is false when the parameter
// is present but uses another operator.
func eqParam(c echo.Context, name string) (value string, present, ok bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return "", false, true
	}
	v, found := strings.CutPrefix(raw, "eq.")
	if !found {
		return "", true, false
	}
	return v, true, true
}

// rowFilter resolves the user_id and id filters of a request. A user_id
// filter naming someone else matches nothing, like a row-level policy.
func rowFilter(c echo.Context) (id int64, visible bool, err error) {
	owner, present, ok := eqParam(c, "user_id")
	if !ok {
		return 0, false, echo.NewHTTPError(http.StatusBadRequest, "unsupported user_id filter")
	}
	if present && owner != subject(c) {
		return 0, false, nil
	}

	rawID, present, ok := eqParam(c, "id")
	if !ok {
		return 0, false, echo.NewHTTPError(http.StatusBadRequest, "unsupported id filter")
	}
	if present {
		id, err = strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return 0, false, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
	}
	return id, true, nil
}

func (s *Server) listSessions(c echo.Context) error {
	id, visible, err := rowFilter(c)
	if err != nil {
		return err
	}
	if !visible {
		return c.JSON(http.StatusOK, []store.Record{})
	}

	rows, err := s.repo.List(c.Request().Context(), subject(c), id)
	if err != nil {
		s.log.Error("list sessions", zap.Error(err))
		return errJSON(c, http.StatusInternalServerError, "could not list sessions")
	}
	return c.JSON(http.StatusOK, rows)
}

// decodeRows accepts a single record object or an array of them.
func decodeRows(body io.Reader) ([]store.NewRecord, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one store.NewRecord
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []store.NewRecord{one}, nil
	}
	var many []store.NewRecord
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func (s *Server) insertSessions(c echo.Context) error {
	rows, err := decodeRows(c.Request().Body)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}

	owner := subject(c)
	for i := range rows {
		if rows[i].UserID == "" {
			rows[i].UserID = owner
		}
		if rows[i].UserID != owner {
			return errJSON(c, http.StatusForbidden, "user_id does not match token subject")
		}
		if rows[i].ZoneID == "" {
			return errJSON(c, http.StatusBadRequest, "zone_id is required")
		}
	}

	created, err := s.repo.Insert(c.Request().Context(), rows, s.now())
	if err != nil {
		s.log.Error("insert sessions", zap.Error(err))
		return errJSON(c, http.StatusInternalServerError, "could not insert sessions")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateSessions(c echo.Context) error {
	id, visible, err := rowFilter(c)
	if err != nil {
		return err
	}
	if id == 0 {
		return errJSON(c, http.StatusBadRequest, "an id filter is required")
	}

	var p store.RecordPatch
	if err := json.NewDecoder(c.Request().Body).Decode(&p); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if !visible {
		return c.JSON(http.StatusOK, []store.Record{})
	}

	rows, err := s.repo.Update(c.Request().Context(), subject(c), id, p)
	if err != nil {
		s.log.Error("update session", zap.Int64("id", id), zap.Error(err))
		return errJSON(c, http.StatusInternalServerError, "could not update session")
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) deleteSessions(c echo.Context) error {
	id, visible, err := rowFilter(c)
	if err != nil {
		return err
	}

	gone := []store.Record{}
	if visible {
		gone, err = s.repo.Delete(c.Request().Context(), subject(c), id)
		if err != nil {
			s.log.Error("delete sessions", zap.Int64("id", id), zap.Error(err))
			return errJSON(c, http.StatusInternalServerError, "could not delete sessions")
		}
	}

	if c.Request().Header.Get("Prefer") != "return=representation" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, gone)
}

func (s *Server) leaderboard(c echo.Context) error {
	cat, ok := stats.ParseCategory(c.QueryParam("category"))
	if !ok {
		return errJSON(c, http.StatusBadRequest, "unknown category")
	}
	days := defaultLeaderboardDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errJSON(c, http.StatusBadRequest, "invalid days")
		}
		days = n
	}

	byPlayer, err := s.repo.SessionsByOwner(c.Request().Context())
	if err != nil {
		s.log.Error("leaderboard", zap.Error(err))
		return errJSON(c, http.StatusInternalServerError, "could not load sessions")
	}
	out := stats.Leaderboard(byPlayer, cat, days, s.now())
	if out == nil {
		out = []stats.Standing{}
	}
	return c.JSON(http.StatusOK, out)
}
