package utils

import (
	"net/http"

	"toolhaus/globals"
)

func GetUserIDFromRequest(r *http.Request) string {
	ctx := r.Context()
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRolesFromRequest(r *http.Request) []string {
	roles, ok := r.Context().Value(globals.RoleKey).([]string)
	if !ok {
		return nil
	}
	return roles
}

func HasRole(r *http.Request, role string) bool {
	for _, have := range GetRolesFromRequest(r) {
		if have == role {
			return true
		}
	}
	return false
}
