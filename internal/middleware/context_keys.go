package middleware

import "github.com/gin-gonic/gin"

// participantIDKey is the key under which the auth middleware stores the
// authenticated participant's ID.
const participantIDKey = contextKey("participantID")

// GetParticipantIDFromContext retrieves the authenticated participant ID.
// The engine never trusts a body-supplied identity for the acting party;
// this is the only source.
func GetParticipantIDFromContext(c *gin.Context) (string, bool) {
	participantID, ok := c.Request.Context().Value(participantIDKey).(string)
	if !ok || participantID == "" {
		return "", false
	}
	return participantID, true
}
