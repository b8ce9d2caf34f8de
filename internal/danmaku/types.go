package danmaku

// Task is one entry of the danmaku server's task list.
type Task struct {
	TaskID      string  `json:"taskId"`
	Title       string  `json:"title"`
	Progress    float64 `json:"progress"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"createdAt"`
	Status      string  `json:"status"`
}

// envelope is the wrapped response shape some deployments return.
type envelope struct {
	Success *bool  `json:"success"`
	Data    []Task `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e envelope) errorText() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	case e.Detail != "":
		return e.Detail
	default:
		return "unknown error"
	}
}
