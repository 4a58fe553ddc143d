package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc    service.UserService
	logger *zap.Logger
}

func NewUserHandler(svc service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

type UserResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	ProfilePhoto  *string  `json:"profilePhoto"`
	SkillsOffered []string `json:"skillsOffered"`
	SkillsWanted  []string `json:"skillsWanted"`
	Availability  string   `json:"availability"`
	IsPublic      bool     `json:"isPublic"`
	CreatedAt     string   `json:"createdAt"`
}

// MeResponse adds the fields only the owner sees.
type MeResponse struct {
	UserResponse
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsBanned bool   `json:"isBanned"`
}

type RatingResponse struct {
	RaterID   string `json:"raterId"`
	SwapID    string `json:"swapId"`
	Rating    int    `json:"rating"`
	Feedback  string `json:"feedback,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type ProfileResponse struct {
	UserResponse
	AverageRating float64          `json:"averageRating"`
	RatingCount   int64            `json:"ratingCount"`
	Ratings       []RatingResponse `json:"ratings"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Location:      u.Location,
		ProfilePhoto:  strPtrOrNil(u.ProfilePhoto),
		SkillsOffered: nonNil(u.SkillsOffered),
		SkillsWanted:  nonNil(u.SkillsWanted),
		Availability:  u.Availability,
		IsPublic:      u.IsPublic,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

func toMeResponse(u *model.User) MeResponse {
	return MeResponse{UserResponse: toUserResponse(u), Email: u.Email, Role: string(u.Role), IsBanned: u.IsBanned}
}

func (h *UserHandler) Browse(c echo.Context) error {
	list, err := h.svc.Browse(c.Request().Context(), c.QueryParam("skill"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	resp := make([]UserResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toUserResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": resp})
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	viewer, _ := c.Get("uid").(string)
	p, err := h.svc.GetPublicProfile(c.Request().Context(), c.Param("id"), viewer)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	ratings := make([]RatingResponse, 0, len(p.Ratings))
	for _, r := range p.Ratings {
		ratings = append(ratings, RatingResponse{
			RaterID:   r.RaterID,
			SwapID:    r.SwapID,
			Rating:    r.Rating,
			Feedback:  r.Feedback,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, ProfileResponse{
		UserResponse:  toUserResponse(&p.User),
		AverageRating: math.Round(p.Summary.Average*10) / 10,
		RatingCount:   p.Summary.Count,
		Ratings:       ratings,
	})
}

func (h *UserHandler) Me(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	u, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toMeResponse(u))
}

type updateProfileRequest struct {
	Name          *string   `json:"name"`
	Location      *string   `json:"location"`
	SkillsOffered *[]string `json:"skillsOffered"`
	SkillsWanted  *[]string `json:"skillsWanted"`
	Availability  *string   `json:"availability"`
	IsPublic      *bool     `json:"isPublic"`
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	var req updateProfileRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), uid, service.ProfileUpdate{
		Name:          req.Name,
		Location:      req.Location,
		SkillsOffered: req.SkillsOffered,
		SkillsWanted:  req.SkillsWanted,
		Availability:  req.Availability,
		IsPublic:      req.IsPublic,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toMeResponse(u))
}

func (h *UserHandler) UploadPhoto(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "multipart field photo is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "could not read photo")
	}
	defer f.Close()
	u, err := h.svc.SetPhoto(c.Request().Context(), uid, f, fh.Size, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toMeResponse(u))
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
