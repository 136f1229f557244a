package model

// Model3DStatus tracks a listing through the 3D generation pipeline
type Model3DStatus string

const (
	Model3DBypassed  Model3DStatus = "bypassed"
	Model3DPending   Model3DStatus = "pending"
	Model3DCompleted Model3DStatus = "completed"
	Model3DFailed    Model3DStatus = "failed"
)

// PaymentStatus of a promotion payment intent
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Property types accepted on listing creation
type PropertyType string

const (
	PropertyApartment  PropertyType = "apartment"
	PropertyHouse      PropertyType = "house"
	PropertyLand       PropertyType = "land"
	PropertyCommercial PropertyType = "commercial"
)
