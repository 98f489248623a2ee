package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

// ParseUUID parses a UUID path parameter. A malformed id cannot name a record, so it is reported
// as not found.
func ParseUUID(c echo.Context, param, entity string) (uuid.UUID, error) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewNotFoundError(entity, raw)
	}
	return id, nil
}

// QueryIDs collects ids from ?ids=a,b and ?ids[]=a&ids[]=b.
func QueryIDs(c echo.Context) []string {
	params := c.QueryParams()
	return append(append([]string{}, params["ids"]...), params["ids[]"]...)
}

// ParseQuery reads ?filter[name]=value, orderBy, limit and offset.
func ParseQuery(c echo.Context) models.Query {
	q := models.Query{Filter: models.Filter{}, OrderBy: c.QueryParam("orderBy")}

	for key, values := range c.QueryParams() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "filter["), "]")
		if name != "" && name != models.FilterImportHash {
			q.Filter[name] = values[0]
		}
	}

	q.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	q.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return q
}

func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
