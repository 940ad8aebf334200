package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "Gohan VCF Service"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the Gohan VCF API!"
	SERVICE_DESCRIPTION ServiceInfo = "Ingests VCF files into Elasticsearch and rebuilds single-sample VCFs from them."

	SERVICE_ARTIFACT    ServiceInfo = "gohan-vcf"
	SERVICE_VERSION     ServiceInfo = "0.1.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("ca.c3g:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
