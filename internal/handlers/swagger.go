package handlers

// @title Profiles API
// @version 1.0
// @description Account, notification, referral and payment functions behind the personality profiles app
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

// @tag.name account
// @tag.description Sign in, sign up and account management

// @tag.name password
// @tag.description Password reset by email

// @tag.name notifications
// @tag.description Notification feed

// @tag.name mystery
// @tag.description Referral unlock window

// @tag.name profile
// @tag.description Social identity and profile picture

// @tag.name payment
// @tag.description Purchases and billing provider events

// @tag.name operations
// @tag.description Health and maintenance
