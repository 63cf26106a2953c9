// internal/controller/credential_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
)

// CredentialController is a thin pass-through over the credential
// repository.
type CredentialController struct {
	Repo repository.CredentialRepositoryInterface
}

func (c *CredentialController) Create(w http.ResponseWriter, r *http.Request) {
	var cred model.Credential
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	cred.UserID = userID(r)
	if err := c.Repo.Create(&cred); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (c *CredentialController) List(w http.ResponseWriter, r *http.Request) {
	credentials, err := c.Repo.ListByUser(userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": credentials})
}

func (c *CredentialController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid credential id", http.StatusBadRequest)
		return
	}
	if err := c.Repo.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
