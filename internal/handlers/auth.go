package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"healup/internal/models"
	"healup/internal/notify"
)

/* =========================
   REQUEST DTOs
========================= */

type signupRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password" binding:"required"`
}

type forgetPasswordRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

/* =========================
   TOKENS
========================= */

func issueAuthToken(user models.User, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"email":  user.Email,
		"role":   string(user.Role),
		"exp":    time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func issueVerifyToken(user models.User, secret string) (string, error) {
	claims := jwt.MapClaims{
		"userId":  user.ID.Hex(),
		"email":   user.Email,
		"purpose": "verify",
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

/* =========================
   SIGNUP / VERIFY
========================= */

func Signup(db *mongo.Database, jwtSecret string, mailer notify.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/signup"
		defer handlePanic(c, route)

		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		phone := strings.TrimSpace(req.PhoneNumber)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("users").CountDocuments(ctx, bson.M{
			"$or": []bson.M{{"email": email}, {"phoneNumber": phone}},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] signup lookup failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		if count > 0 {
			respondError(c, route, errConflict("user already exists"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] signup password hash failed:", err)
			respondError(c, route, errInternal("password hash failed"))
			return
		}

		now := time.Now()
		user := models.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PhoneNumber:  phone,
			PasswordHash: string(hash),
			Role:         models.RoleUser,
			IsVerified:   false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondError(c, route, errConflict("user already exists"))
				return
			}
			log.Println("[AUTH] [ERROR] signup insert failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			user.ID = id
		}

		token, err := issueVerifyToken(user, jwtSecret)
		if err != nil {
			log.Println("[AUTH] [ERROR] signup token generation failed:", err)
			respondError(c, route, errInternal("token generation failed"))
			return
		}

		link := fmt.Sprintf("%s://%s/auth/verify/%s", requestScheme(c), c.Request.Host, token)
		if err := mailer.Send(user.Email, "Verify your account",
			fmt.Sprintf(`<p>Click on the link to verify your account: <a href="%s">Verify Account</a></p>`, link)); err != nil {
			log.Println("[AUTH] [ERROR] signup verification mail failed:", err)
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		respondData(c, http.StatusCreated, "user created successfully", gin.H{
			"id":    user.ID.Hex(),
			"name":  user.Name,
			"email": user.Email,
		})
	}
}

func VerifyAccount(db *mongo.Database, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/verify/:token"
		defer handlePanic(c, route)

		token, err := jwt.Parse(c.Param("token"), func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			respondError(c, route, errBadRequest("invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(c, route, errBadRequest("invalid token"))
			return
		}
		purpose, _ := claims["purpose"].(string)
		email, _ := claims["email"].(string)
		if purpose != "verify" || strings.TrimSpace(email) == "" {
			respondError(c, route, errBadRequest("invalid token"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err = db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"email": email},
			bson.M{"$set": bson.M{"isVerified": true, "updatedAt": time.Now()}},
		).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("user not found"))
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] verify update failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		// Every verified user gets an empty cart; the unique index on user
		// makes this idempotent.
		now := time.Now()
		_, err = db.Collection("carts").UpdateOne(ctx,
			bson.M{"user": user.ID},
			bson.M{"$setOnInsert": bson.M{
				"medicines":  []models.CartItem{},
				"totalPrice": 0.0,
				"createdAt":  now,
				"updatedAt":  now,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			log.Println("[AUTH] [ERROR] verify cart bootstrap failed:", err)
		}

		log.Println("[AUTH] [INFO] user verified:", email)
		respondData(c, http.StatusOK, "user verified successfully", nil)
	}
}

/* =========================
   LOGIN / PROFILE
========================= */

func Login(db *mongo.Database, jwtSecret string, tokenTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		phone := strings.TrimSpace(req.PhoneNumber)
		if email == "" && phone == "" {
			respondError(c, route, errBadRequest("email or phoneNumber is required"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"$or": []bson.M{{"email": email}, {"phoneNumber": phone}},
		}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errUnauthorized("invalid credentials"))
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] login lookup failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials for:", user.Email)
			respondError(c, route, errUnauthorized("invalid credentials"))
			return
		}

		if !user.IsVerified {
			respondError(c, route, errForbidden("user not verified"))
			return
		}

		token, err := issueAuthToken(user, jwtSecret, tokenTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondError(c, route, errInternal("token generation failed"))
			return
		}

		log.Println("[AUTH] [INFO] login succeeded:", user.Email)
		respondData(c, http.StatusOK, "login successfully", gin.H{
			"token": token,
			"user": gin.H{
				"id":    user.ID.Hex(),
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

func Profile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/profile"
		defer handlePanic(c, route)

		userID, err := authedUserID(c)
		if err != nil {
			respondError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, route, errNotFound("user not found"))
			return
		}

		respondData(c, http.StatusOK, "", gin.H{
			"id":          user.ID.Hex(),
			"name":        user.Name,
			"email":       user.Email,
			"phoneNumber": user.PhoneNumber,
			"role":        user.Role,
			"isVerified":  user.IsVerified,
		})
	}
}

/* =========================
   PASSWORD RECOVERY
========================= */

func ForgetPassword(db *mongo.Database, mailer notify.Mailer, otpTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/forget-password"
		defer handlePanic(c, route)

		var req forgetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		phone := strings.TrimSpace(req.PhoneNumber)
		if email == "" && phone == "" {
			respondError(c, route, errBadRequest("email or phoneNumber is required"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"$or": []bson.M{{"email": email}, {"phoneNumber": phone}},
		}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("user not found"))
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] forget-password lookup failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		otp, err := generateOTP()
		if err != nil {
			log.Println("[AUTH] [ERROR] otp generation failed:", err)
			respondError(c, route, errInternal("otp generation failed"))
			return
		}

		expires := time.Now().Add(otpTTL)
		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{"otp": otp, "otpExpiresAt": expires, "updatedAt": time.Now()},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] otp persist failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		if err := mailer.Send(user.Email, "Your OTP Code",
			fmt.Sprintf("<p>Your OTP code is: <strong>%s</strong>. It is valid for %d minutes.</p>",
				otp, int(otpTTL.Minutes()))); err != nil {
			log.Println("[AUTH] [ERROR] otp mail failed:", err)
			respondError(c, route, errInternal("failed to send OTP"))
			return
		}

		log.Println("[AUTH] [INFO] otp sent to:", user.Email)
		respondData(c, http.StatusOK, "OTP sent successfully", nil)
	}
}

func ResetPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/reset-password"
		defer handlePanic(c, route)

		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondError(c, route, errNotFound("user not found"))
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] reset-password lookup failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		if user.OTP == "" || user.OTP != strings.TrimSpace(req.OTP) ||
			user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
			respondError(c, route, errBadRequest("invalid OTP"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] reset-password hash failed:", err)
			respondError(c, route, errInternal("password hash failed"))
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set":   bson.M{"passwordHash": string(hash), "updatedAt": time.Now()},
			"$unset": bson.M{"otp": "", "otpExpiresAt": ""},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] reset-password update failed:", err)
			respondError(c, route, errInternal("db error"))
			return
		}

		log.Println("[AUTH] [INFO] password updated for:", user.Email)
		respondData(c, http.StatusOK, "password updated successfully", nil)
	}
}

func requestScheme(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
