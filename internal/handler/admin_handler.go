package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	svc    service.AdminService
	logger *zap.Logger
}

func NewAdminHandler(svc service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	byStatus := make(map[string]int64, len(st.ByStatus))
	for k, v := range st.ByStatus {
		byStatus[string(k)] = v
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":        st.Users,
		"totalSwaps":   st.TotalSwaps,
		"pendingSwaps": st.PendingSwaps,
		"byStatus":     byStatus,
	})
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	list, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	resp := make([]MeResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toMeResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": resp})
}

func (h *AdminHandler) ToggleBan(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	u, err := h.svc.ToggleBan(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toMeResponse(u))
}

func (h *AdminHandler) ListSwaps(c echo.Context) error {
	list, err := h.svc.ListSwaps(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	resp := make([]SwapResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toSwapResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"swaps": resp})
}

func (h *AdminHandler) UsersReport(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.svc.WriteUsersCSV(c.Request().Context(), &buf); err != nil {
		return writeError(c, h.logger, err)
	}
	return sendCSV(c, "users", buf.Bytes())
}

func (h *AdminHandler) SwapsReport(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.svc.WriteSwapsCSV(c.Request().Context(), &buf); err != nil {
		return writeError(c, h.logger, err)
	}
	return sendCSV(c, "swaps", buf.Bytes())
}

func sendCSV(c echo.Context, name string, data []byte) error {
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
