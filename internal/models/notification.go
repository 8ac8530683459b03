package models

// Виды получателей уведомления.
const (
	TargetBroadcast = "broadcast"
	TargetUser      = "user"
)

// Notification содержит текст push-уведомления. Заголовок до 50 символов
// и тело до 200 символов рекомендуются, но не проверяются.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Target определяет адресата рассылки: всех пользователей или одного.
type Target struct {
	Kind   string
	UserID string
}

// Broadcast возвращает цель "все пользователи".
func Broadcast() Target {
	return Target{Kind: TargetBroadcast}
}

// SingleUser возвращает цель "конкретный пользователь".
func SingleUser(userID string) Target {
	return Target{Kind: TargetUser, UserID: userID}
}

// Recipient связывает пользователя с его push-токеном.
type Recipient struct {
	UserID string
	Token  string
}

// FailureDetail описывает неудачную отправку на один токен.
type FailureDetail struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
	Reason string `json:"reason"`
}

// DispatchReport агрегирует результат рассылки по всем пакетам.
type DispatchReport struct {
	SuccessCount  int             `json:"success_count"`
	FailureCount  int             `json:"failure_count"`
	TotalTargeted int             `json:"total_targeted"`
	Failures      []FailureDetail `json:"failures,omitempty"`
}

// SendResult описывает результат отправки на один токен, как его вернул шлюз.
type SendResult struct {
	Token     string
	MessageID string
	Err       error
}

// SendAllRequest принимает рассылку всем пользователям.
type SendAllRequest struct {
	Title   string            `json:"title" validate:"required"`
	Message string            `json:"message" validate:"required"`
	Data    map[string]string `json:"data,omitempty"`
}

// SendUserRequest принимает рассылку одному пользователю.
type SendUserRequest struct {
	UserID  string            `json:"user_id" validate:"required,uuid"`
	Title   string            `json:"title" validate:"required"`
	Message string            `json:"message" validate:"required"`
	Data    map[string]string `json:"data,omitempty"`
}

// SendTestRequest принимает тестовую отправку на произвольный токен.
type SendTestRequest struct {
	Token   string            `json:"token" validate:"required"`
	Title   string            `json:"title" validate:"required"`
	Message string            `json:"message" validate:"required"`
	Data    map[string]string `json:"data,omitempty"`
}

// ReminderJob публикуется планировщиком и обрабатывается отправителем.
type ReminderJob struct {
	UserID       string       `json:"user_id"`
	Notification Notification `json:"notification"`
}
