package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/services"
)

type handler struct {
	users          UserService
	assets         AssetService
	sweeper        Sweeper
	logger         logging.Logger
	maxUploadBytes int64
}

// CredentialsRequest is the body of POST /signup and POST /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UploadResponse struct {
	Message string `json:"message"`
	*models.Asset
}

type UploadManyResponse struct {
	Message string          `json:"message"`
	Files   []*models.Asset `json:"files"`
}

type CleanResponse struct {
	Message string                `json:"message"`
	Report  *services.SweepReport `json:"report"`
}

type ProtectedResponse struct {
	Message string            `json:"message"`
	User    map[string]string `json:"user"`
}

func (h *handler) register(e *echo.Echo, authRequired echo.MiddlewareFunc) {
	e.GET("/", h.root)
	e.POST("/signup", h.signup)
	e.POST("/login", h.login)
	e.GET("/categories", h.categories)

	e.POST("/upload", h.upload, authRequired)
	e.POST("/upload-multiple", h.uploadMultiple, authRequired)
	e.GET("/images", h.images, authRequired)
	e.DELETE("/delete-file/:id", h.deleteFile, authRequired)
	e.DELETE("/clean-database", h.cleanDatabase, authRequired)
	e.GET("/protected", h.protected, authRequired)
}

// fail logs server-side failures and converts err for echo's error handler.
func (h *handler) fail(c echo.Context, err error) error {
	he := toHTTPError(err)
	if he.Code >= http.StatusInternalServerError {
		h.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}
	return he
}

func (h *handler) root(c echo.Context) error {
	return c.String(http.StatusOK, "Backend is running!")
}

func (h *handler) bindCredentials(c echo.Context) (CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, common.ErrEmptyCredentials.Error())
	}
	return req, nil
}

func (h *handler) signup(c echo.Context) error {
	req, err := h.bindCredentials(c)
	if err != nil {
		return err
	}
	if _, err := h.users.Register(c.Request().Context(), req.Username, req.Password); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User registered successfully!"})
}

func (h *handler) login(c echo.Context) error {
	req, err := h.bindCredentials(c)
	if err != nil {
		return err
	}
	token, err := h.users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, LoginResponse{Message: "Login successful!", Token: token})
}

func (h *handler) readUpload(fh *multipart.FileHeader) (services.Upload, error) {
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return services.Upload{}, fmt.Errorf("%w: %s", common.ErrFileTooLarge, fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, fmt.Errorf("read upload: %w", err)
	}

	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func (h *handler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return h.fail(c, common.ErrNoFileProvided)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "malformed multipart body")
	}

	u, err := h.readUpload(fh)
	if err != nil {
		return h.fail(c, err)
	}

	a, err := h.assets.Ingest(c.Request().Context(), principal(c), u, c.FormValue("category"), c.FormValue("description"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, UploadResponse{Message: "File uploaded successfully!", Asset: a})
}

func (h *handler) uploadMultiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return h.fail(c, common.ErrNoFilesProvided)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "malformed multipart body")
	}

	headers := form.File["files"]
	files := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := h.readUpload(fh)
		if err != nil {
			return h.fail(c, err)
		}
		files = append(files, u)
	}

	assets, err := h.assets.IngestMany(c.Request().Context(), principal(c), files, formValue(form, "category"), formValue(form, "description"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, UploadManyResponse{Message: "Files uploaded successfully!", Files: assets})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (h *handler) images(c echo.Context) error {
	list, err := h.assets.ListByOwner(c.Request().Context(), principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) categories(c echo.Context) error {
	list, err := h.assets.ListCategories(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) deleteFile(c echo.Context) error {
	if err := h.assets.Delete(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "File and database record deleted successfully."})
}

func (h *handler) cleanDatabase(c echo.Context) error {
	report, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		if report == nil {
			return h.fail(c, err)
		}
		h.logger.Warn(c.Request().Context(), "sweep finished with errors", "error", err)
	}
	return c.JSON(http.StatusOK, CleanResponse{Message: "Database cleanup complete.", Report: report})
}

func (h *handler) protected(c echo.Context) error {
	return c.JSON(http.StatusOK, ProtectedResponse{
		Message: "This is a protected route.",
		User:    map[string]string{"userId": principal(c)},
	})
}
