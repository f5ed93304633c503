// Пакет generated — сервер chi и модели, сгенерированные oapi-codegen
// из api/openapi.yaml. Файл generated.go не редактируется вручную.
package generated

//go:generate oapi-codegen --config=oapi-codegen.yaml ../../../api/openapi.yaml
