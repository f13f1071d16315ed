package models

// PasswordResetMessage сообщение очереди со ссылкой на сброс пароля.
type PasswordResetMessage struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Token     string `json:"token"`
}

// ContactReplyMessage ответ администратора на обращение.
type ContactReplyMessage struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Message  string `json:"message"`
	Response string `json:"response"`
}
