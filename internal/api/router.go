package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/staysync/staysync/internal/auth"
	"github.com/staysync/staysync/internal/catalog"
	"github.com/staysync/staysync/internal/inventory"
	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/property"
)

// Deps are the services the API is built on.
type Deps struct {
	DB          *sql.DB
	JWTSecret   string
	TokenExpiry time.Duration
	Users       *auth.Service
	Catalog     *catalog.Service
	Inventory   *inventory.Manager
	Properties  *property.Service
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, TokenExpiry: d.TokenExpiry, Users: d.Users}
	catalogHandler := &CatalogHandler{Catalog: d.Catalog}
	inventoryHandler := &InventoryHandler{Inventory: d.Inventory, Catalog: catalogHandler}
	propertiesHandler := &PropertiesHandler{Properties: d.Properties}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	allow := func(permission string, h http.HandlerFunc) http.Handler {
		return authMW(RequirePermission(d.Users, permission)(h))
	}

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/register", allow(model.PermissionUsersManage, authHandler.Register))

	// Catalog.
	mux.Handle("GET /api/inventory/catalog", allow(model.PermissionInventoryRead, catalogHandler.List))
	mux.Handle("POST /api/inventory/catalog", allow(model.PermissionCatalogWrite, catalogHandler.Create))
	mux.Handle("PATCH /api/inventory/catalog/{id}", allow(model.PermissionCatalogWrite, catalogHandler.Update))
	mux.Handle("DELETE /api/inventory/catalog/{id}", allow(model.PermissionCatalogWrite, catalogHandler.Delete))

	// Property inventories. GET /api/inventory/catalog/{id} overlaps
	// GET /api/inventory/{propertyId}/items, so both go through View.
	mux.Handle("GET /api/inventory/{propertyId}/{view}", allow(model.PermissionInventoryRead, inventoryHandler.View))
	mux.Handle("GET /api/inventory/{propertyId}", allow(model.PermissionInventoryRead, inventoryHandler.Collection))
	mux.Handle("DELETE /api/inventory/{propertyId}", allow(model.PermissionInventoryWrite, inventoryHandler.DeleteInventory))
	mux.Handle("POST /api/inventory/{propertyId}/clone", allow(model.PermissionInventoryWrite, inventoryHandler.CloneInventory))
	mux.Handle("POST /api/inventory/{propertyId}/items", allow(model.PermissionInventoryWrite, inventoryHandler.AddItem))
	mux.Handle("GET /api/inventory/{propertyId}/items/{itemId}", allow(model.PermissionInventoryRead, inventoryHandler.GetItem))
	mux.Handle("PATCH /api/inventory/{propertyId}/items/{itemId}", allow(model.PermissionInventoryWrite, inventoryHandler.UpdateItem))
	mux.Handle("DELETE /api/inventory/{propertyId}/items/{itemId}", allow(model.PermissionInventoryWrite, inventoryHandler.DeleteItem))
	mux.Handle("GET /api/inventory/{propertyId}/items/{itemId}/children", allow(model.PermissionInventoryRead, inventoryHandler.Children))
	mux.Handle("PUT /api/inventory/{propertyId}/items/{itemId}/checked", allow(model.PermissionInventoryCheck, inventoryHandler.SetChecked))
	mux.Handle("POST /api/inventory/{propertyId}/items/{itemId}/clone", allow(model.PermissionInventoryWrite, inventoryHandler.CloneItem))
	mux.Handle("POST /api/inventory/{propertyId}/items/{itemId}/photos", allow(model.PermissionInventoryCheck, inventoryHandler.AddPhoto))

	// Properties.
	mux.Handle("GET /api/properties", allow(model.PermissionPropertiesRead, propertiesHandler.List))
	mux.Handle("POST /api/properties", allow(model.PermissionPropertiesWrite, propertiesHandler.Create))
	mux.Handle("GET /api/properties/{id}", allow(model.PermissionPropertiesRead, propertiesHandler.Get))
	mux.Handle("PUT /api/properties/{id}", allow(model.PermissionPropertiesWrite, propertiesHandler.Update))
	mux.Handle("DELETE /api/properties/{id}", allow(model.PermissionPropertiesWrite, propertiesHandler.Delete))
	mux.Handle("POST /api/properties/{id}/upload", allow(model.PermissionPropertiesWrite, propertiesHandler.Upload))
	mux.Handle("POST /api/properties/{id}/upload-multiple", allow(model.PermissionPropertiesWrite, propertiesHandler.UploadMultiple))
	mux.Handle("POST /api/properties/{id}/clone-images", allow(model.PermissionPropertiesWrite, propertiesHandler.CloneImages))
	mux.Handle("POST /api/properties/{id}/clone", allow(model.PermissionPropertiesWrite, propertiesHandler.Clone))

	return mux
}
