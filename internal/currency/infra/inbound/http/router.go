package http

import "github.com/gin-gonic/gin"

func RegisterCurrencyRoutes(r gin.IRouter, handler *CurrencyHandler) {
	currencies := r.Group("/api/currencies")
	{
		currencies.GET("/supported", handler.Supported)
		currencies.GET("/rates", handler.Rates)
		currencies.GET("/rates/:from", handler.RatesFrom)
		currencies.GET("/convert", handler.Convert)
	}
}
