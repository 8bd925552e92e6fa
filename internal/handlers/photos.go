package handlers

import (
	"photo-rating/internal/models"
	"photo-rating/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UploadPhotoHandler accepts a multipart form with a "photo" file plus
// gender and age fields.
func UploadPhotoHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		gender, age := c.FormValue("gender"), c.FormValue("age")
		if gender == "" || age == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Gender and age are required")
		}

		fileHeader, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		photo, err := photos.UploadPhoto(c.UserContext(), services.UploadInput{
			OwnerID:     currentUserID(c),
			Gender:      gender,
			Age:         age,
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
			Size:        fileHeader.Size,
			Body:        file,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"photo": photo})
	}
}

// PhotosToRateHandler returns at most one photo the caller may rate.
func PhotosToRateHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := services.ParseFilter(c.Query("gender"), c.Query("minAge"), c.Query("maxAge"))
		if err != nil {
			return err
		}

		photo, err := photos.SelectPhotoToRate(c.UserContext(), currentUserID(c), filter)
		if err != nil {
			return err
		}

		list := []models.Photo{}
		if photo != nil {
			list = append(list, *photo)
		}
		return c.JSON(fiber.Map{"photos": list})
	}
}

func RatePhotoHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RateRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		if req.PhotoID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Photo ID is required")
		}

		res, err := photos.RatePhoto(c.UserContext(), currentUserID(c), req.PhotoID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Photo rated successfully", "points": res.RaterPoints})
	}
}

func ToggleActiveHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.ToggleActiveRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		if req.PhotoID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Photo ID is required")
		}

		photo, err := photos.SetPhotoActive(c.UserContext(), currentUserID(c), req.PhotoID, req.IsActive)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Photo status updated", "photo": photo})
	}
}

func MyPhotosHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := photos.MyPhotos(c.UserContext(), currentUserID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"photos": list})
	}
}

// PhotoStatsHandler aggregates who rated one of the caller's photos.
func PhotoStatsHandler(photos *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid photo id")
		}

		stats, err := photos.StatsForPhoto(c.UserContext(), currentUserID(c), int64(id))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"stats": stats})
	}
}
