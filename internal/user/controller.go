package user

import (
	"errors"
	"io"
	"net/http"

	"user_api/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	userService UserServiceInterface
}

func NewUserController(userService UserServiceInterface) *UserController {
	return &UserController{
		userService: userService,
	}
}

// List handles GET /users
func (a *UserController) List(c *gin.Context) {
	users, err := a.userService.ListUsers(c.Request.Context())
	if err != nil {
		sendFailure(c, err)
		return
	}
	sendSuccess(c, users)
}

// Get handles GET /users/:name
func (a *UserController) Get(c *gin.Context) {
	name := c.Param("name")

	profile, err := a.userService.GetUser(c.Request.Context(), name)
	if err != nil {
		sendFailure(c, err)
		return
	}
	sendSuccess(c, profile)
}

// Create handles POST /users
func (a *UserController) Create(c *gin.Context) {
	var req UserRequest
	if err := bindUserBody(c, &req); err != nil {
		sendFailure(c, err)
		return
	}

	name, err := a.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		sendFailure(c, err)
		return
	}

	logrus.WithField("userName", name).Info("User created successfully")
	sendSuccess(c, name)
}

// Update handles PUT /users/:name
func (a *UserController) Update(c *gin.Context) {
	var req UserRequest
	if err := bindUserBody(c, &req); err != nil {
		sendFailure(c, err)
		return
	}

	profile, err := a.userService.UpdateUser(c.Request.Context(), c.Param("name"), &req)
	if err != nil {
		sendFailure(c, err)
		return
	}
	sendSuccess(c, profile)
}

// Delete handles DELETE /users/:name
func (a *UserController) Delete(c *gin.Context) {
	name, err := a.userService.DeleteUser(c.Request.Context(), c.Param("name"))
	if err != nil {
		sendFailure(c, err)
		return
	}

	logrus.WithField("userName", name).Info("User deleted successfully")
	sendSuccess(c, name)
}

// Login handles POST /users/login and returns a signed token
func (a *UserController) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindUserBody(c, &req); err != nil {
		sendFailure(c, err)
		return
	}

	result, err := a.userService.Login(c.Request.Context(), &req)
	if err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"error": nil,
		"data":  result.UserName,
		"token": result.Token,
	})
}

// maxBodyBytes caps the request body read by bindUserBody.
const maxBodyBytes = 64 << 10

func bindUserBody(c *gin.Context, dst interface{}) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.TooLarge(`"value" is too large`)
		}
		return apperror.Validation(msgNotObject)
	}
	return DecodeAndValidate(body, dst)
}

func sendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"error": nil, "data": data})
}

func sendFailure(c *gin.Context, err error) {
	appErr := apperror.From(err)
	if appErr.Code >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(appErr.Code, gin.H{"error": appErr.Code, "data": appErr.Message})
}

