package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	StepServices     = "services"
	StepPersonal     = "personal"
	StepDateTime     = "datetime"
	StepReview       = "review"
	StepConfirmation = "confirmation"
)

const (
	LocationInSalon = "in-salon"
	LocationAtHome  = "at-home"
)

const (
	// DateLayout формат календарной даты бронирования
	DateLayout = "2006-01-02"

	// ClockLayout формат слота времени
	ClockLayout = "15:04"
)

const (
	// DefaultTravelFee наценка за выезд на дом
	DefaultTravelFee = 25

	// DefaultClosedDay выходной день салона
	DefaultClosedDay = "sunday"

	// DefaultDayStart и DefaultDayEnd границы рабочего дня (включительно)
	DefaultDayStart = "09:00"
	DefaultDayEnd   = "17:30"

	// DefaultSlotIntervalMinutes шаг сетки слотов
	DefaultSlotIntervalMinutes = 30

	// DefaultMaxBookingDays максимальный горизонт бронирования
	DefaultMaxBookingDays = 365

	// DefaultSessionTTL время жизни состояния визарда в Redis
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// CatalogCacheTTL время жизни кэша каталога в памяти
	CatalogCacheTTL = 30 * 60 // 30 минут в секундах
)
