package controllers

import (
	"encoding/json"
	"net/http"

	"bakery-orders/errs"
	"bakery-orders/middleware"
	"bakery-orders/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type errorBody struct {
	Kind    errs.Kind `json:"kind"`
	Message string    `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, errs.HTTPStatus(err), map[string]errorBody{
		"error": {Kind: errs.KindOf(err), Message: errs.MessageOf(err)},
	})
}

// requestActor pulls the authenticated claims and the user's object id
// out of the request context. Returns false after writing a 401 when the
// claims are missing or malformed.
func requestActor(w http.ResponseWriter, r *http.Request) (*utils.Claims, primitive.ObjectID, bool) {
	claims, ok := r.Context().Value(middleware.UserContextKey).(*utils.Claims)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user id in token", http.StatusUnauthorized)
		return nil, primitive.NilObjectID, false
	}
	return claims, userID, true
}
