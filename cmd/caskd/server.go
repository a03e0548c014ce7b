package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/yonwoo9/caskdb"
)

type setRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type statusResponse struct {
	Status string `json:"status"`
	Keys   int    `json:"keys"`
}

// newHandler wires the engine to the HTTP routes: POST /set, GET /get/{key},
// DELETE /del/{key}, and GET / as health check. Storage errors map to 500.
func newHandler(db *caskdb.DB) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statusResponse{Status: "ok", Keys: db.Len()}); err != nil {
			log.Printf("health: failed to encode response: %v", err)
		}
	})

	mux.HandleFunc("POST /set", func(w http.ResponseWriter, r *http.Request) {
		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if err := db.Set([]byte(req.Key), []byte(req.Value)); err != nil {
			log.Printf("set %q: %v", req.Key, err)
			if errors.Is(err, caskdb.ErrKeyTooLarge) || errors.Is(err, caskdb.ErrValueTooLarge) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "write failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /get/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		value, ok, err := db.Get([]byte(key))
		if err != nil {
			log.Printf("get %q: %v", key, err)
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := w.Write(value); err != nil {
			log.Printf("get %q: failed to write response: %v", key, err)
		}
	})

	mux.HandleFunc("DELETE /del/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		ok, err := db.Del([]byte(key))
		if err != nil {
			log.Printf("del %q: %v", key, err)
			http.Error(w, "delete failed", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return mux
}
