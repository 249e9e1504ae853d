package wire

import (
	"nurse-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// Role checks for booking steps need the booking row, so they live in the
// service rather than in middleware.
func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/", bookingHandler.ListBookings)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", bookingHandler.GetBooking)
			r.Post("/accept", bookingHandler.AcceptBooking)
			r.Post("/cancel", bookingHandler.CancelBooking)
			r.Post("/arrival", bookingHandler.MarkArrival)
			r.Post("/arrival/confirm", bookingHandler.ConfirmArrival)
			r.Post("/session/start", bookingHandler.StartService)
			r.Post("/session/stop", bookingHandler.StopService)
		})
	})
}
