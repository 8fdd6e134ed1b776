package transport

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

type (
	TaskReq struct {
		Title string `json:"title" validate:"required"`
	}

	TaskUpdateReq struct {
		Title    string `json:"title" validate:"required"`
		Finished *bool  `json:"finished" validate:"required"`
	}

	TaskResp struct {
		ID       uint64 `json:"id"`
		Title    string `json:"title"`
		Finished bool   `json:"finished"`
	}

	ProjectReq struct {
		Name        string    `json:"name" validate:"required"`
		Description string    `json:"description" validate:"required"`
		StartDate   time.Time `json:"startDate" validate:"required"`
		EndDate     time.Time `json:"endDate" validate:"required"`
		Tasks       []uint64  `json:"tasksIds"`
	}

	ProjectResp struct {
		ID          uint64     `json:"id"`
		Name        string     `json:"name"`
		Description string     `json:"description"`
		StartDate   time.Time  `json:"startDate"`
		EndDate     time.Time  `json:"endDate"`
		Tasks       []TaskResp `json:"tasks"`
	}
)

func (s *HTTPServer) TaskCreate(c echo.Context) error {
	req := TaskReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := s.projects.CreateTask(req.Title)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toTaskResp(task))
}

func (s *HTTPServer) TaskList(c echo.Context) error {
	tasks, err := s.projects.GetTasks()
	if err != nil {
		return err
	}

	resp := make([]TaskResp, len(tasks))
	for i := range tasks {
		resp[i] = toTaskResp(&tasks[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TaskGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	task, err := s.projects.GetTask(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTaskResp(task))
}

func (s *HTTPServer) TaskUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := TaskUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := s.projects.UpdateTask(id, req.Title, *req.Finished)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTaskResp(task))
}

func (s *HTTPServer) TaskDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.projects.DeleteTask(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) ProjectCreate(c echo.Context) error {
	req := ProjectReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := s.projects.CreateProject(req.Name, req.Description, req.StartDate, req.EndDate, req.Tasks)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toProjectResp(project))
}

func (s *HTTPServer) ProjectList(c echo.Context) error {
	projects, err := s.projects.GetProjects()
	if err != nil {
		return err
	}

	resp := make([]ProjectResp, len(projects))
	for i := range projects {
		resp[i] = toProjectResp(&projects[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) ProjectGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	project, err := s.projects.GetProject(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProjectResp(project))
}

func (s *HTTPServer) ProjectUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := ProjectReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := s.projects.UpdateProject(id, req.Name, req.Description, req.StartDate, req.EndDate, req.Tasks)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProjectResp(project))
}

func (s *HTTPServer) ProjectDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.projects.DeleteProject(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func toTaskResp(task *db.Task) TaskResp {
	return TaskResp{
		ID:       task.ID,
		Title:    task.Title,
		Finished: task.Finished,
	}
}

func toProjectResp(project *db.Project) ProjectResp {
	resp := ProjectResp{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		Tasks:       make([]TaskResp, len(project.Tasks)),
	}
	for i := range project.Tasks {
		resp.Tasks[i] = toTaskResp(&project.Tasks[i])
	}
	return resp
}
