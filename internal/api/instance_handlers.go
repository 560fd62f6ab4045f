package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"enclaveai-backend/internal/models"
)

// listInstancesHandler handles GET /api/admin/instances: live provisioned
// throughputs from the provider merged with the backend's bookkeeping
// rows, keyed by instance name.
func listInstancesHandler(c echo.Context) error {
	if cloudClient == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "model provider is not configured",
		})
	}
	ctx := c.Request().Context()

	live, err := cloudClient.ListProvisionedThroughputs(ctx)
	if err != nil {
		c.Logger().Error("provider list error: ", err)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "model provider request failed",
		})
	}

	views := make(map[string]*models.InstanceView, len(live))
	order := make([]string, 0, len(live))
	for i := range live {
		inst := live[i]
		views[inst.Name] = &models.InstanceView{Live: &inst}
		order = append(order, inst.Name)
	}

	// Bookkeeping rows are best effort; the live view still renders if the
	// backend is unreachable.
	rows, err := backendSvc.Table("instances").Select(ctx)
	if err != nil {
		c.Logger().Error("instance records error: ", err)
	}
	for _, row := range rows {
		rec := rowToInstanceRecord(row)
		if v, ok := views[rec.Name]; ok {
			v.Record = rec
		} else {
			views[rec.Name] = &models.InstanceView{Record: rec}
			order = append(order, rec.Name)
		}
	}

	out := make([]*models.InstanceView, 0, len(order))
	for _, name := range order {
		out = append(out, views[name])
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"instances": out,
		"region":    cloudClient.Region(),
	})
}

func rowToInstanceRecord(row map[string]any) *models.InstanceRecord {
	rec := &models.InstanceRecord{}
	if v, ok := row["id"].(string); ok {
		rec.ID = v
	}
	if v, ok := row["name"].(string); ok {
		rec.Name = v
	}
	if v, ok := row["customer_id"].(string); ok {
		rec.CustomerID = v
	}
	if v, ok := row["plan"].(string); ok {
		rec.Plan = v
	}
	if v, ok := row["created_at"].(time.Time); ok {
		rec.CreatedAt = v
	}
	if v, ok := row["updated_at"].(time.Time); ok {
		rec.UpdatedAt = v
	}
	return rec
}

// listAuditLogsHandler handles GET /api/admin/audit
func listAuditLogsHandler(c echo.Context) error {
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

	entries, err := auditRec.List(c.Request().Context(), limit)
	if err != nil {
		c.Logger().Error("audit list error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list audit logs",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}
