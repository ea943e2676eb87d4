package i18n

// DefaultMessages returns built-in translations for all supported locales.
// These can be overridden by loading JSON files from a directory.
func DefaultMessages() map[Locale]map[string]string {
	return map[Locale]map[string]string{
		LocaleEn: enMessages,
		LocaleEs: esMessages,
		LocaleKo: koMessages,
	}
}

var enMessages = map[string]string{
	// Common errors
	"error.not_found":         "The requested resource was not found",
	"error.unauthorized":      "Authentication is required",
	"error.bad_request":       "The request is malformed",
	"error.internal":          "Something went wrong on our side",
	"error.unavailable":       "The service is temporarily unavailable, please retry",
	"error.too_many_requests": "Too many messages, slow down and try again in %d seconds",
	"error.validation":        "Please check your input",

	// Chat
	"chat.access_denied":      "You do not have access to this chat",
	"chat.not_owner":          "Only the sender can edit this message",
	"chat.empty_content":      "Message cannot be empty",
	"chat.self_conversation":  "You cannot start a conversation with yourself",
	"chat.invalid_channel":    "Invalid chat id",
	"chat.invalid_cursor":     "Invalid page cursor",
	"chat.live_unavailable":   "Live updates are unavailable, pull to refresh",
	"chat.membership_updated": "Membership change delivered",
}

var esMessages = map[string]string{
	"error.not_found":         "No se encontró el recurso solicitado",
	"error.unauthorized":      "Se requiere autenticación",
	"error.bad_request":       "La solicitud no es válida",
	"error.internal":          "Algo salió mal de nuestro lado",
	"error.unavailable":       "El servicio no está disponible temporalmente, inténtalo de nuevo",
	"error.too_many_requests": "Demasiados mensajes, espera %d segundos",
	"error.validation":        "Revisa los datos ingresados",

	"chat.access_denied":     "No tienes acceso a este chat",
	"chat.not_owner":         "Solo quien envió el mensaje puede editarlo",
	"chat.empty_content":     "El mensaje no puede estar vacío",
	"chat.self_conversation": "No puedes iniciar una conversación contigo mismo",
	"chat.invalid_channel":   "Identificador de chat no válido",
	"chat.invalid_cursor":    "Cursor de página no válido",
	"chat.live_unavailable":  "Las actualizaciones en vivo no están disponibles, desliza para actualizar",
}

var koMessages = map[string]string{
	"error.not_found":         "요청한 리소스를 찾을 수 없습니다",
	"error.unauthorized":      "인증이 필요합니다",
	"error.bad_request":       "잘못된 요청입니다",
	"error.internal":          "서버 내부 오류가 발생했습니다",
	"error.unavailable":       "일시적으로 서비스를 이용할 수 없습니다. 다시 시도해주세요",
	"error.too_many_requests": "메시지를 너무 많이 보냈습니다. %d초 후 다시 시도해주세요",
	"error.validation":        "입력값이 올바르지 않습니다",

	"chat.access_denied":     "이 채팅에 접근할 권한이 없습니다",
	"chat.not_owner":         "본인이 보낸 메시지만 수정할 수 있습니다",
	"chat.empty_content":     "메시지 내용을 입력해주세요",
	"chat.self_conversation": "자기 자신과 대화를 시작할 수 없습니다",
	"chat.invalid_channel":   "잘못된 채팅 ID입니다",
	"chat.invalid_cursor":    "잘못된 페이지 커서입니다",
	"chat.live_unavailable":  "실시간 업데이트를 사용할 수 없습니다. 새로고침 해주세요",
}
