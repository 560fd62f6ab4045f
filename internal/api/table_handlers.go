package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"enclaveai-backend/internal/auth"
	"enclaveai-backend/internal/backend"
)

// filtersFromQuery turns query params into equality filters, skipping the
// reserved control params.
func filtersFromQuery(c echo.Context) map[string]any {
	filters := make(map[string]any)
	for key, vals := range c.QueryParams() {
		switch key {
		case "limit", "single", "token":
			continue
		}
		if len(vals) > 0 {
			filters[key] = vals[0]
		}
	}
	return filters
}

func tableErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, backend.ErrNoRows):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no rows found",
		})
	case errors.Is(err, backend.ErrBadIdentifier):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid table or column name",
		})
	}
	c.Logger().Error("table operation error: ", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "backend operation failed",
	})
}

// fetchRowsHandler handles GET /api/data/:table
func fetchRowsHandler(c echo.Context) error {
	token := auth.GetTokenFromContext(c)
	table := c.Param("table")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid limit",
			})
		}
		limit = n
	}
	single := c.QueryParam("single") == "true"

	rows, err := dataSvc.Fetch(c.Request().Context(), token, table, filtersFromQuery(c), limit, single)
	if err != nil {
		return tableErrorResponse(c, err)
	}
	if single {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data": rows[0],
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": rows,
	})
}

// insertRowHandler handles POST /api/data/:table
func insertRowHandler(c echo.Context) error {
	token := auth.GetTokenFromContext(c)
	table := c.Param("table")

	var row map[string]any
	if err := c.Bind(&row); err != nil || len(row) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "request body must be a non-empty JSON object",
		})
	}

	inserted, err := dataSvc.Insert(c.Request().Context(), token, table, row)
	if err != nil {
		return tableErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"data": inserted,
	})
}

// updateRowsHandler handles PATCH /api/data/:table. Filters come from
// query params, values from the body.
func updateRowsHandler(c echo.Context) error {
	token := auth.GetTokenFromContext(c)
	table := c.Param("table")

	filters := filtersFromQuery(c)
	if len(filters) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "at least one filter is required",
		})
	}

	var values map[string]any
	if err := c.Bind(&values); err != nil || len(values) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "request body must be a non-empty JSON object",
		})
	}

	n, err := dataSvc.Update(c.Request().Context(), token, table, filters, values)
	if err != nil {
		return tableErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"updated": n,
	})
}

// deleteRowsHandler handles DELETE /api/data/:table
func deleteRowsHandler(c echo.Context) error {
	token := auth.GetTokenFromContext(c)
	table := c.Param("table")

	filters := filtersFromQuery(c)
	if len(filters) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "at least one filter is required",
		})
	}

	n, err := dataSvc.Delete(c.Request().Context(), token, table, filters)
	if err != nil {
		return tableErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": n,
	})
}
