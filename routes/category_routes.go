package routes

import (
	"github.com/ELEVATE-Project/project-service-sub000/controllers"
	"github.com/ELEVATE-Project/project-service-sub000/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterCategoryRoutes(rg *gin.RouterGroup, jwtSecret, jwtIssuer string, categoryController *controllers.CategoryController) {
	categories := rg.Group("/categories")
	categories.Use(middleware.AuthMiddleware(jwtSecret, jwtIssuer))
	{
		categories.GET("", categoryController.ListCategories)                     // GET /categories
		categories.GET("/hierarchy", categoryController.GetHierarchy)             // GET /categories/hierarchy
		categories.GET("/leaves", categoryController.GetLeaves)                   // GET /categories/leaves
		categories.GET("/:id", categoryController.GetCategory)                    // GET /categories/:id (id or externalId)
		categories.GET("/:id/hierarchy", categoryController.GetCategoryHierarchy) // GET /categories/:id/hierarchy
		categories.GET("/:id/can-delete", categoryController.CanDeleteCategory)   // GET /categories/:id/can-delete
	}

	admin := categories.Group("")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTenantAdmin))
	{
		admin.POST("", categoryController.CreateCategory)                // POST /categories (JSON or multipart)
		admin.POST("/bulk", categoryController.BulkCreateCategories)     // POST /categories/bulk
		admin.POST("/reconcile", categoryController.ReconcileCategories) // POST /categories/reconcile
		admin.PATCH("/:id", categoryController.UpdateCategory)           // PATCH /categories/:id
		admin.PATCH("/:id/move", categoryController.MoveCategory)        // PATCH /categories/:id/move
		admin.DELETE("/:id", categoryController.DeleteCategory)          // DELETE /categories/:id
	}
}
