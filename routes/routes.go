// routes/routes.go
package routes

import (
	"net/http"

	"bakery-orders/controllers"
	"bakery-orders/middleware"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, cartController *controllers.CartController, orderController *controllers.OrderController) {
	// Cart routes
	cart := router.PathPrefix("/cart").Subrouter()
	cart.Use(middleware.AuthMiddleware)
	cart.HandleFunc("", cartController.GetCart).Methods("GET")
	cart.HandleFunc("", cartController.UpdateCart).Methods("POST")
	cart.HandleFunc("", cartController.RemoveFromCart).Methods("DELETE")

	// Order routes
	orders := router.PathPrefix("/orders").Subrouter()
	orders.Use(middleware.AuthMiddleware)
	orders.Handle("/all", middleware.AdminMiddleware(http.HandlerFunc(orderController.GetAllOrders))).Methods("GET")
	orders.Handle("/verify-payment", middleware.AdminMiddleware(http.HandlerFunc(orderController.VerifyPayment))).Methods("PUT")
	orders.HandleFunc("", orderController.GetOrders).Methods("GET")
	orders.HandleFunc("", orderController.CreateOrder).Methods("POST")
	orders.HandleFunc("/{id}", orderController.CancelOrder).Methods("PATCH")
	orders.Handle("/{id}", middleware.AdminMiddleware(http.HandlerFunc(orderController.UpdateOrderStatus))).Methods("PUT")
}
