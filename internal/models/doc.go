// Package models defines the core domain models for payfees.
//
// # Reference data
//
// Students and Services are read-only on the client. They come from the
// school catalog and are never created or mutated by a payer.
//
//   - Student: a pupil enrolled at a school
//   - Service: a billable fee item (tuition, transport, meals, ...)
//
// # Checkout
//
//   - CheckoutService: a Service bound to one Student for one transaction
//
// # Payments
//
//   - PaymentRequest: the body a client submits to record a payment
//   - PaymentRecord: the durable, backend-owned copy of a submitted payment
//   - Transaction: the client-facing summary returned after processing
//
// Relationships between models use ID strings rather than pointers.
package models
